package fees

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"secureflow/native/common"
)

type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	accruedPrefix   = []byte("escrow/fees/")
	unaccruedPrefix = []byte("escrow/unaccrued/")
)

func accruedKey(asset [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", accruedPrefix, asset))
}

func unaccruedKey(asset [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", unaccruedPrefix, asset))
}

// Ledger tracks per-asset platform fees. A fee is held when an escrow is
// funded, becomes accrued once work starts, and is released back to the
// depositor if the escrow ends before that.
type Ledger struct {
	store storage
}

func NewLedger(store storage) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) load(key []byte) (*uint256.Int, error) {
	var stored big.Int
	ok, err := l.store.KVGet(key, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return common.Zero(), nil
	}
	return common.FromBig(&stored)
}

func (l *Ledger) put(key []byte, amount *uint256.Int) error {
	return l.store.KVPut(key, common.ToBig(amount))
}

// Accrued returns the withdrawable fee balance for asset.
func (l *Ledger) Accrued(asset [20]byte) (*uint256.Int, error) {
	return l.load(accruedKey(asset))
}

// Unaccrued returns fees collected from escrows that have not started work.
func (l *Ledger) Unaccrued(asset [20]byte) (*uint256.Int, error) {
	return l.load(unaccruedKey(asset))
}

// Hold records a fee collected at escrow creation.
func (l *Ledger) Hold(asset [20]byte, fee *uint256.Int) error {
	if fee == nil || fee.IsZero() {
		return nil
	}
	held, err := l.Unaccrued(asset)
	if err != nil {
		return err
	}
	next, err := common.Add(held, fee)
	if err != nil {
		return err
	}
	return l.put(unaccruedKey(asset), next)
}

// Accrue moves a held fee into the withdrawable pool.
func (l *Ledger) Accrue(asset [20]byte, fee *uint256.Int) error {
	if fee == nil || fee.IsZero() {
		return nil
	}
	if err := l.Release(asset, fee); err != nil {
		return err
	}
	accrued, err := l.Accrued(asset)
	if err != nil {
		return err
	}
	next, err := common.Add(accrued, fee)
	if err != nil {
		return err
	}
	return l.put(accruedKey(asset), next)
}

// Release drops a held fee that will be returned to the depositor.
func (l *Ledger) Release(asset [20]byte, fee *uint256.Int) error {
	if fee == nil || fee.IsZero() {
		return nil
	}
	held, err := l.Unaccrued(asset)
	if err != nil {
		return err
	}
	next, err := common.Sub(held, fee)
	if err != nil {
		return fmt.Errorf("fees: release held fee: %w", err)
	}
	return l.put(unaccruedKey(asset), next)
}

// Drain zeroes the accrued pool and returns what it held.
func (l *Ledger) Drain(asset [20]byte) (*uint256.Int, error) {
	accrued, err := l.Accrued(asset)
	if err != nil {
		return nil, err
	}
	if accrued.IsZero() {
		return accrued, nil
	}
	if err := l.put(accruedKey(asset), common.Zero()); err != nil {
		return nil, err
	}
	return accrued, nil
}
