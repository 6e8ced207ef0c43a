package reputation

import (
	"encoding/hex"
	"strconv"

	"secureflow/core/types"
)

const (
	// EventTypeAwarded is emitted whenever points are added to an account.
	EventTypeAwarded = "reputation.awarded"
)

// NewAwardedEvent returns the canonical payload for a reputation award.
func NewAwardedEvent(addr [20]byte, escrowID uint64, points, score uint64, reason string) *types.Event {
	return &types.Event{Type: EventTypeAwarded, Attributes: map[string]string{
		"account":  hex.EncodeToString(addr[:]),
		"escrowId": strconv.FormatUint(escrowID, 10),
		"points":   strconv.FormatUint(points, 10),
		"score":    strconv.FormatUint(score, 10),
		"reason":   reason,
	}}
}
