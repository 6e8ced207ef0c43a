package common

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrAmountOverflow  = errors.New("amount overflow")
	ErrAmountUnderflow = errors.New("amount underflow")
	ErrNegativeAmount  = errors.New("negative amount")
)

// Zero returns a fresh zero amount.
func Zero() *uint256.Int { return new(uint256.Int) }

// CloneAmount copies v, treating nil as zero.
func CloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

// Add returns a+b or ErrAmountOverflow. Neither operand is modified.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(CloneAmount(a), CloneAmount(b))
	if overflow {
		return nil, ErrAmountOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrAmountUnderflow when b exceeds a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	left, right := CloneAmount(a), CloneAmount(b)
	if left.Lt(right) {
		return nil, ErrAmountUnderflow
	}
	return new(uint256.Int).Sub(left, right), nil
}

// ToBig converts an amount into the form persisted by the store.
func ToBig(v *uint256.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v.ToBig()
}

// FromBig converts a persisted amount back. Values outside the uint256 range
// are rejected rather than truncated.
func FromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return out, nil
}
