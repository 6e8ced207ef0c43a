package fees

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"secureflow/native/common"
)

const (
	// BasisPointsDenominator expresses 100% in basis points.
	BasisPointsDenominator = 10_000
	// MaxFeeBps caps the platform fee at 10%.
	MaxFeeBps uint32 = 1_000
)

var ErrInvalidRate = errors.New("fees: rate exceeds maximum")

// ValidateRate rejects rates above MaxFeeBps.
func ValidateRate(bps uint32) error {
	if bps > MaxFeeBps {
		return fmt.Errorf("%w: %d > %d", ErrInvalidRate, bps, MaxFeeBps)
	}
	return nil
}

// Compute returns total * bps / 10000, rounded down.
func Compute(total *uint256.Int, bps uint32) (*uint256.Int, error) {
	if total == nil || total.IsZero() || bps == 0 {
		return common.Zero(), nil
	}
	scaled, overflow := new(uint256.Int).MulOverflow(total, uint256.NewInt(uint64(bps)))
	if overflow {
		return nil, common.ErrAmountOverflow
	}
	return scaled.Div(scaled, uint256.NewInt(BasisPointsDenominator)), nil
}

// Quote returns the fee for total and the gross amount a depositor must supply.
func Quote(total *uint256.Int, bps uint32) (fee, gross *uint256.Int, err error) {
	fee, err = Compute(total, bps)
	if err != nil {
		return nil, nil, err
	}
	gross, err = common.Add(total, fee)
	if err != nil {
		return nil, nil, err
	}
	return fee, gross, nil
}
