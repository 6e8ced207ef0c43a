package reputation

import (
	"errors"
	"fmt"
	"math"
)

// storage abstracts the subset of state manager functionality required by the
// reputation ledger.
type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	scorePrefix     = []byte("reputation/score/")
	completedPrefix = []byte("reputation/completed/")
)

func scoreKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", scorePrefix, addr))
}

func completedKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", completedPrefix, addr))
}

// ErrCounterOverflow is returned when a counter would wrap.
var ErrCounterOverflow = errors.New("reputation: counter overflow")

// Ledger persists per-account reputation scores and completed-escrow counts.
// Both only ever increase.
type Ledger struct {
	store storage
}

// NewLedger constructs a ledger bound to the provided storage backend.
func NewLedger(store storage) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) counter(key []byte) (uint64, error) {
	var value uint64
	if _, err := l.store.KVGet(key, &value); err != nil {
		return 0, err
	}
	return value, nil
}

func (l *Ledger) increment(key []byte, by uint64) (uint64, error) {
	current, err := l.counter(key)
	if err != nil {
		return 0, err
	}
	if current > math.MaxUint64-by {
		return 0, ErrCounterOverflow
	}
	next := current + by
	if err := l.store.KVPut(key, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Score returns the reputation points held by addr.
func (l *Ledger) Score(addr [20]byte) (uint64, error) {
	return l.counter(scoreKey(addr))
}

// Completed returns how many escrows addr has seen through to release.
func (l *Ledger) Completed(addr [20]byte) (uint64, error) {
	return l.counter(completedKey(addr))
}

// Award adds points to addr and returns the new score.
func (l *Ledger) Award(addr [20]byte, points uint64) (uint64, error) {
	if points == 0 {
		return l.Score(addr)
	}
	return l.increment(scoreKey(addr), points)
}

// RecordCompletion bumps the completed-escrow counter for addr.
func (l *Ledger) RecordCompletion(addr [20]byte) (uint64, error) {
	return l.increment(completedKey(addr), 1)
}
