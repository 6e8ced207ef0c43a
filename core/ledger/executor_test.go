package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"secureflow/core/events"
	"secureflow/core/state"
	"secureflow/native/bank"
	"secureflow/native/escrow"
	"secureflow/storage"
)

var (
	owner      = [20]byte{0x0a}
	depositor  = [20]byte{0xd0}
	freelancer = [20]byte{0xf0}
	arbiter    = [20]byte{0xab}
)

const opTime uint64 = 1_700_000_000

type harness struct {
	t    *testing.T
	db   storage.Database
	x    *Executor
	sink *events.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := storage.NewMemDB()
	sink := &events.Recorder{}
	x, err := New(db, Options{Sink: sink})
	require.NoError(t, err)
	h := &harness{t: t, db: db, x: x, sink: sink}

	h.exec("admin.init", owner, func(e *escrow.Engine, _ *bank.Ledger) error {
		return e.Initialize(owner, owner, 100)
	})
	h.exec("admin.authorize-arbiter", owner, func(e *escrow.Engine, _ *bank.Ledger) error {
		return e.AuthorizeArbiter(owner, arbiter)
	})
	h.exec("bank.deposit", depositor, func(_ *escrow.Engine, b *bank.Ledger) error {
		return b.Credit([20]byte{}, depositor, uint256.NewInt(1_000_000))
	})
	return h
}

func (h *harness) exec(name string, caller [20]byte, fn func(*escrow.Engine, *bank.Ledger) error) *Receipt {
	h.t.Helper()
	receipt, err := h.x.Execute(context.Background(), Op{Name: name, Caller: caller, Now: opTime}, fn)
	require.NoError(h.t, err, name)
	return receipt
}

func (h *harness) createEscrow() uint64 {
	h.t.Helper()
	var id uint64
	h.exec("escrow.create-native", depositor, func(e *escrow.Engine, _ *bank.Ledger) error {
		var err error
		id, err = e.CreateNative(depositor, escrow.CreateParams{
			Beneficiary:           freelancer,
			Arbiters:              [][20]byte{arbiter},
			RequiredConfirmations: 1,
			MilestoneAmounts:      []*uint256.Int{uint256.NewInt(1000)},
			MilestoneDescriptions: []string{"design"},
			Duration:              7 * 24 * 3600,
			Title:                 "landing page",
		}, uint256.NewInt(1010))
		return err
	})
	return id
}

func TestExecuteCommitsAndJournals(t *testing.T) {
	h := newHarness(t)
	id := h.createEscrow()
	require.Equal(t, uint64(1), id)

	receipt := h.exec("escrow.start", freelancer, func(e *escrow.Engine, _ *bank.Ledger) error {
		return e.StartWork(freelancer, id)
	})
	require.Equal(t, uint64(5), receipt.Seq)
	require.Equal(t, opTime, receipt.Time)
	require.NotEmpty(t, receipt.OpID)
	require.Len(t, receipt.Events, 1)
	require.Equal(t, escrow.EventTypeWorkStarted, receipt.Events[0].Type)

	entry, err := h.x.Entry(receipt.Seq)
	require.NoError(t, err)
	require.Equal(t, "escrow.start", entry.Name)
	require.Equal(t, freelancer, entry.Caller)
	require.Equal(t, receipt.OpID, entry.OpID)
	require.Len(t, entry.Events, 1)
	require.Equal(t, escrow.EventTypeWorkStarted, entry.Events[0].Type)

	head, err := h.x.Verify()
	require.NoError(t, err)
	require.Equal(t, receipt.Seq, head.Seq)
	require.Equal(t, receipt.Digest, head.Digest)

	err = h.x.View(func(e *escrow.Engine, _ *bank.Ledger) error {
		s, err := e.Escrow(id)
		if err != nil {
			return err
		}
		require.Equal(t, escrow.StatusInProgress, s.Status)
		require.Equal(t, opTime, s.CreatedAt)
		return nil
	})
	require.NoError(t, err)
}

func TestExecuteFailureLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	before, err := h.x.Head()
	require.NoError(t, err)
	emitted := len(h.sink.Events)

	boom := errors.New("boom")
	_, err = h.x.Execute(context.Background(), Op{Name: "bank.deposit", Caller: depositor, Now: opTime}, func(_ *escrow.Engine, b *bank.Ledger) error {
		if err := b.Credit([20]byte{}, depositor, uint256.NewInt(5)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := h.x.Head()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Len(t, h.sink.Events, emitted)

	require.NoError(t, h.x.View(func(_ *escrow.Engine, b *bank.Ledger) error {
		bal, err := b.Balance([20]byte{}, depositor)
		require.NoError(t, err)
		require.Equal(t, uint64(1_000_000), bal.Uint64())
		return nil
	}))
}

func TestExecuteRejectedTransferRollsBackApproval(t *testing.T) {
	h := newHarness(t)
	id := h.createEscrow()
	h.exec("escrow.start", freelancer, func(e *escrow.Engine, _ *bank.Ledger) error {
		return e.StartWork(freelancer, id)
	})
	h.exec("escrow.submit", freelancer, func(e *escrow.Engine, _ *bank.Ledger) error {
		return e.Submit(freelancer, id, 0, "done")
	})
	emitted := len(h.sink.Events)

	_, err := h.x.Execute(context.Background(), Op{Name: "escrow.approve", Caller: depositor, Now: opTime}, func(e *escrow.Engine, b *bank.Ledger) error {
		b.SetReceiveHook(func(_, _ [20]byte, _ *uint256.Int) error { return errors.New("recipient refuses") })
		defer b.SetReceiveHook(nil)
		return e.Approve(depositor, id, 0)
	})
	require.ErrorIs(t, err, escrow.ErrTransferFailed)
	require.Len(t, h.sink.Events, emitted, "events of a failed operation are dropped")

	require.NoError(t, h.x.View(func(e *escrow.Engine, b *bank.Ledger) error {
		m, err := e.Milestone(id, 0)
		require.NoError(t, err)
		require.Equal(t, escrow.MilestoneSubmitted, m.Status)
		reserve, err := e.Reserve([20]byte{})
		require.NoError(t, err)
		require.Equal(t, uint64(1000), reserve.Uint64())
		bal, err := b.Balance([20]byte{}, freelancer)
		require.NoError(t, err)
		require.True(t, bal.IsZero())
		return nil
	}))

	h.exec("escrow.approve", depositor, func(e *escrow.Engine, _ *bank.Ledger) error {
		return e.Approve(depositor, id, 0)
	})
	require.Equal(t, escrow.EventTypeEscrowReleased, h.sink.Types()[len(h.sink.Events)-1])
}

func TestVerifyDetectsTampering(t *testing.T) {
	h := newHarness(t)
	h.createEscrow()
	_, err := h.x.Verify()
	require.NoError(t, err)

	raw := state.NewManager(h.db)
	var entry Entry
	ok, err := raw.KVGet(journalEntryKey(2), &entry)
	require.NoError(t, err)
	require.True(t, ok)
	entry.Name = "admin.rewritten"
	require.NoError(t, raw.KVPut(journalEntryKey(2), &entry))
	require.NoError(t, raw.Commit())

	_, err = h.x.Verify()
	require.ErrorIs(t, err, ErrJournalCorrupt)
}

func TestJournalSurvivesReopen(t *testing.T) {
	h := newHarness(t)
	h.createEscrow()
	head, err := h.x.Head()
	require.NoError(t, err)

	reopened, err := New(h.db, Options{})
	require.NoError(t, err)
	got, err := reopened.Verify()
	require.NoError(t, err)
	require.Equal(t, head, got)

	receipt, err := reopened.Execute(context.Background(), Op{Name: "admin.pause", Caller: owner, Now: opTime}, func(e *escrow.Engine, _ *bank.Ledger) error {
		return e.Pause(owner)
	})
	require.NoError(t, err)
	require.Equal(t, head.Seq+1, receipt.Seq)

	entry, err := reopened.Entry(receipt.Seq)
	require.NoError(t, err)
	require.Equal(t, head.Digest, entry.Prev)
}

func TestExecuteGuards(t *testing.T) {
	h := newHarness(t)
	_, err := h.x.Execute(context.Background(), Op{Name: "noop"}, nil)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.x.Execute(ctx, Op{Name: "admin.pause", Caller: owner}, func(e *escrow.Engine, _ *bank.Ledger) error {
		return e.Pause(owner)
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = h.x.Entry(999)
	require.ErrorIs(t, err, ErrEntryNotFound)

	_, err = New(nil, Options{})
	require.Error(t, err)
}

func TestEntryDigestDependsOnPrev(t *testing.T) {
	entry := Entry{Seq: 1, OpID: "op", Name: "escrow.create", Events: []EventRecord{{Type: "escrow.created", Attributes: []Attribute{{Key: "id", Value: "1"}}}}}
	first, err := entry.Digest()
	require.NoError(t, err)
	entry.Prev = first
	second, err := entry.Digest()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
