package bank

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"secureflow/core/state"
	kv "secureflow/storage"
)

var (
	custody = [20]byte{0xcc}
	alice   = [20]byte{0x01}
	bob     = [20]byte{0x02}
	token   = [20]byte{0x7e}
)

func newLedger(t *testing.T) (*Ledger, *state.Manager) {
	t.Helper()
	mgr := state.NewManager(kv.NewMemDB())
	return NewLedger(mgr, custody), mgr
}

func mustBalance(t *testing.T, l *Ledger, asset, account [20]byte) uint64 {
	t.Helper()
	bal, err := l.Balance(asset, account)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal.Uint64()
}

func TestTransferInAndOut(t *testing.T) {
	l, _ := newLedger(t)
	if err := l.Credit(token, alice, uint256.NewInt(500)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.TransferIn(token, alice, uint256.NewInt(300)); err != nil {
		t.Fatalf("transfer in: %v", err)
	}
	if got := mustBalance(t, l, token, custody); got != 300 {
		t.Fatalf("expected custody 300, got %d", got)
	}
	if err := l.TransferOut(token, bob, uint256.NewInt(120)); err != nil {
		t.Fatalf("transfer out: %v", err)
	}
	if got := mustBalance(t, l, token, bob); got != 120 {
		t.Fatalf("expected bob 120, got %d", got)
	}
	if got := mustBalance(t, l, token, alice); got != 200 {
		t.Fatalf("expected alice 200, got %d", got)
	}
}

func TestTransferInInsufficientBalance(t *testing.T) {
	l, _ := newLedger(t)
	if err := l.Credit(token, alice, uint256.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	err := l.TransferIn(token, alice, uint256.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := mustBalance(t, l, token, alice); got != 10 {
		t.Fatalf("failed pull must not move funds, got %d", got)
	}
}

func TestReceiveHookRejection(t *testing.T) {
	l, mgr := newLedger(t)
	if err := l.Credit(token, custody, uint256.NewInt(50)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	var seen uint64
	l.SetReceiveHook(func(asset, recipient [20]byte, amount *uint256.Int) error {
		seen = amount.Uint64()
		return errors.New("no thanks")
	})
	err := l.TransferOut(token, bob, uint256.NewInt(50))
	if !errors.Is(err, ErrTransferRejected) {
		t.Fatalf("expected ErrTransferRejected, got %v", err)
	}
	if seen != 50 {
		t.Fatalf("hook saw %d", seen)
	}
	mgr.Discard()
	if got := mustBalance(t, l, token, custody); got != 50 {
		t.Fatalf("expected custody restored after discard, got %d", got)
	}
}

func TestCreditRejectsZeroAccount(t *testing.T) {
	l, _ := newLedger(t)
	if err := l.Credit(token, [20]byte{}, uint256.NewInt(1)); !errors.Is(err, ErrZeroAccount) {
		t.Fatalf("expected ErrZeroAccount, got %v", err)
	}
}
