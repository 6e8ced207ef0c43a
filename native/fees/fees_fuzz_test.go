package fees

import (
	"testing"

	"github.com/holiman/uint256"
)

func FuzzQuote(f *testing.F) {
	f.Add(uint64(0), uint32(0))
	f.Add(uint64(1000), uint32(250))
	f.Add(uint64(9_999), uint32(MaxFeeBps))
	f.Add(^uint64(0), uint32(MaxFeeBps))

	f.Fuzz(func(t *testing.T, raw uint64, bps uint32) {
		bps %= MaxFeeBps + 1
		total := uint256.NewInt(raw)
		fee, gross, err := Quote(total, bps)
		if err != nil {
			t.Fatalf("quote(%d, %d): %v", raw, bps, err)
		}
		ceiling := new(uint256.Int).Div(new(uint256.Int).Mul(total, uint256.NewInt(uint64(MaxFeeBps))), uint256.NewInt(BasisPointsDenominator))
		if fee.Gt(ceiling) {
			t.Fatalf("fee %s exceeds the %d bps ceiling %s", fee.Dec(), MaxFeeBps, ceiling.Dec())
		}
		sum := new(uint256.Int).Add(total, fee)
		if !sum.Eq(gross) {
			t.Fatalf("gross %s != total %s + fee %s", gross.Dec(), total.Dec(), fee.Dec())
		}
		if total.Uint64() != raw {
			t.Fatalf("quote mutated its input")
		}
	})
}
