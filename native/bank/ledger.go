package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"secureflow/native/common"
)

type storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var balancePrefix = []byte("bank/balance/")

func balanceKey(asset, account [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x/%x", balancePrefix, asset, account))
}

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrTransferRejected    = errors.New("bank: recipient rejected transfer")
	ErrZeroAccount         = errors.New("bank: zero account")
)

// ReceiveHook runs after value lands in a recipient's account. A non-nil error
// rejects the transfer. It stands in for code a recipient runs on receipt.
type ReceiveHook func(asset, recipient [20]byte, amount *uint256.Int) error

// Ledger keeps balances per (asset, account) and moves value in and out of a
// single custody account on behalf of the escrow module.
type Ledger struct {
	store   storage
	custody [20]byte
	hook    ReceiveHook
}

// NewLedger binds the ledger to store using custody as the vault account.
func NewLedger(store storage, custody [20]byte) *Ledger {
	return &Ledger{store: store, custody: custody}
}

// SetReceiveHook installs the hook invoked on outbound transfers. Passing nil
// removes it.
func (l *Ledger) SetReceiveHook(hook ReceiveHook) { l.hook = hook }

// Custody returns the vault account.
func (l *Ledger) Custody() [20]byte { return l.custody }

// Balance returns the amount of asset held by account.
func (l *Ledger) Balance(asset, account [20]byte) (*uint256.Int, error) {
	var stored big.Int
	ok, err := l.store.KVGet(balanceKey(asset, account), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return common.Zero(), nil
	}
	return common.FromBig(&stored)
}

// CustodyBalance returns the vault's holding of asset.
func (l *Ledger) CustodyBalance(asset [20]byte) (*uint256.Int, error) {
	return l.Balance(asset, l.custody)
}

func (l *Ledger) setBalance(asset, account [20]byte, amount *uint256.Int) error {
	return l.store.KVPut(balanceKey(asset, account), common.ToBig(amount))
}

// Credit mints amount into account. Used to fund accounts outside the escrow
// flow.
func (l *Ledger) Credit(asset, account [20]byte, amount *uint256.Int) error {
	if account == ([20]byte{}) {
		return ErrZeroAccount
	}
	current, err := l.Balance(asset, account)
	if err != nil {
		return err
	}
	next, err := common.Add(current, amount)
	if err != nil {
		return err
	}
	return l.setBalance(asset, account, next)
}

// Transfer moves amount of asset between two accounts.
func (l *Ledger) Transfer(asset, from, to [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if to == ([20]byte{}) {
		return ErrZeroAccount
	}
	fromBal, err := l.Balance(asset, from)
	if err != nil {
		return err
	}
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromBal, amount)
	}
	if err := l.setBalance(asset, from, new(uint256.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	toBal, err := l.Balance(asset, to)
	if err != nil {
		return err
	}
	next, err := common.Add(toBal, amount)
	if err != nil {
		return err
	}
	return l.setBalance(asset, to, next)
}

// TransferIn pulls amount of asset from payer into custody.
func (l *Ledger) TransferIn(asset, payer [20]byte, amount *uint256.Int) error {
	if err := l.Transfer(asset, payer, l.custody, amount); err != nil {
		return fmt.Errorf("bank: transfer in: %w", err)
	}
	return nil
}

// TransferOut pushes amount of asset from custody to recipient and then runs
// the receive hook. A hook failure fails the transfer; the caller discards
// every write made by the operation.
func (l *Ledger) TransferOut(asset, recipient [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if err := l.Transfer(asset, l.custody, recipient, amount); err != nil {
		return fmt.Errorf("bank: transfer out: %w", err)
	}
	if l.hook == nil {
		return nil
	}
	if err := l.hook(asset, recipient, common.CloneAmount(amount)); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferRejected, err)
	}
	return nil
}
