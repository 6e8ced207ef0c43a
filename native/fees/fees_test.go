package fees

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"secureflow/native/common"
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

func TestCompute(t *testing.T) {
	cases := []struct {
		name  string
		total uint64
		bps   uint32
		want  uint64
	}{
		{name: "zero rate", total: 1_000, bps: 0, want: 0},
		{name: "two and a half percent", total: 10_000, bps: 250, want: 250},
		{name: "rounds down", total: 399, bps: 250, want: 9},
		{name: "maximum rate", total: 300, bps: MaxFeeBps, want: 30},
		{name: "zero total", total: 0, bps: 500, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, err := Compute(uint256.NewInt(tc.total), tc.bps)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if fee.Uint64() != tc.want {
				t.Fatalf("expected fee %d, got %s", tc.want, fee)
			}
		})
	}
}

func TestComputeOverflow(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	if _, err := Compute(max, 2); !errors.Is(err, common.ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestQuote(t *testing.T) {
	fee, gross, err := Quote(uint256.NewInt(300), 100)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if fee.Uint64() != 3 || gross.Uint64() != 303 {
		t.Fatalf("unexpected quote fee=%s gross=%s", fee, gross)
	}
}

func TestValidateRate(t *testing.T) {
	if err := ValidateRate(MaxFeeBps); err != nil {
		t.Fatalf("max rate rejected: %v", err)
	}
	if err := ValidateRate(MaxFeeBps + 1); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
}

func TestLedgerHoldAccrueDrain(t *testing.T) {
	ledger := NewLedger(newMemoryStore())
	asset := [20]byte{0xaa}

	if err := ledger.Hold(asset, uint256.NewInt(30)); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if err := ledger.Hold(asset, uint256.NewInt(5)); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if err := ledger.Accrue(asset, uint256.NewInt(30)); err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if err := ledger.Release(asset, uint256.NewInt(5)); err != nil {
		t.Fatalf("release: %v", err)
	}
	held, _ := ledger.Unaccrued(asset)
	if !held.IsZero() {
		t.Fatalf("expected no held fees, got %s", held)
	}
	drained, err := ledger.Drain(asset)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if drained.Uint64() != 30 {
		t.Fatalf("expected 30 drained, got %s", drained)
	}
	accrued, _ := ledger.Accrued(asset)
	if !accrued.IsZero() {
		t.Fatalf("expected empty pool after drain")
	}
}

func TestLedgerReleaseUnderflow(t *testing.T) {
	ledger := NewLedger(newMemoryStore())
	if err := ledger.Release([20]byte{}, uint256.NewInt(1)); !errors.Is(err, common.ErrAmountUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}
