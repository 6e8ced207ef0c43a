package reputation

import (
	"errors"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
)

type memoryStore struct {
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.data[string(key)] = encoded
	return nil
}

func (m *memoryStore) KVGet(key []byte, out interface{}) (bool, error) {
	encoded, ok := m.data[string(key)]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, err
	}
	return true, nil
}

func TestAwardAccumulates(t *testing.T) {
	ledger := NewLedger(newMemoryStore())
	addr := [20]byte{0x42}

	if score, _ := ledger.Score(addr); score != 0 {
		t.Fatalf("expected empty score, got %d", score)
	}
	if _, err := ledger.Award(addr, 10); err != nil {
		t.Fatalf("award: %v", err)
	}
	score, err := ledger.Award(addr, 25)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if score != 35 {
		t.Fatalf("expected score 35, got %d", score)
	}
	if other, _ := ledger.Score([20]byte{0x43}); other != 0 {
		t.Fatalf("scores must be per account")
	}
}

func TestRecordCompletion(t *testing.T) {
	ledger := NewLedger(newMemoryStore())
	addr := [20]byte{0x01}
	for i := 0; i < 3; i++ {
		if _, err := ledger.RecordCompletion(addr); err != nil {
			t.Fatalf("record completion: %v", err)
		}
	}
	completed, err := ledger.Completed(addr)
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if completed != 3 {
		t.Fatalf("expected 3 completions, got %d", completed)
	}
}

func TestAwardOverflow(t *testing.T) {
	store := newMemoryStore()
	ledger := NewLedger(store)
	addr := [20]byte{0x09}
	if err := store.KVPut(scoreKey(addr), uint64(math.MaxUint64)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := ledger.Award(addr, 1); !errors.Is(err, ErrCounterOverflow) {
		t.Fatalf("expected ErrCounterOverflow, got %v", err)
	}
}
