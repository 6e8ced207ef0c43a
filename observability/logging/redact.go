package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

// Free-text fields supplied by users (dispute reasons, cover letters, titles)
// are not on this list and are masked.
var redactionAllowlist = map[string]struct{}{
	"service":           {},
	"env":               {},
	"message":           {},
	"severity":          {},
	"timestamp":         {},
	"error":             {},
	"component":         {},
	"id":                {},
	"index":             {},
	"status":            {},
	"escrowstatus":      {},
	"asset":             {},
	"amount":            {},
	"total":             {},
	"paid":              {},
	"fee":               {},
	"refunded":          {},
	"disputerefunded":   {},
	"beneficiaryamount": {},
	"refundamount":      {},
	"deadline":          {},
	"createdat":         {},
	"extension":         {},
	"openjob":           {},
	"depositor":         {},
	"beneficiary":       {},
	"freelancer":        {},
	"recipient":         {},
	"actor":             {},
	"account":           {},
	"points":            {},
	"score":             {},
	"applications":      {},
	"timeline":          {},
}

// IsAllowlisted reports whether the provided key is exempt from automatic redaction.
func IsAllowlisted(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	_, ok := redactionAllowlist[normalized]
	return ok
}

// RedactionAllowlist returns a sorted copy of the log keys that are allowed to be emitted
// without redaction.
func RedactionAllowlist() []string {
	keys := make([]string, 0, len(redactionAllowlist))
	for key := range redactionAllowlist {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MaskValue returns the canonical redacted placeholder for non-empty values. Empty values
// are returned unchanged to avoid introducing noise in logs.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns a slog.Attr that redacts the supplied value unless the key is
// explicitly allowlisted. The original key casing is preserved for readability.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskAttributes renders an event attribute map as a slog group, masking every
// key that is not allowlisted. keys fixes the output order.
func MaskAttributes(group string, keys []string, attrs map[string]string) slog.Attr {
	fields := make([]any, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, MaskField(key, attrs[key]))
	}
	return slog.Group(group, fields...)
}
