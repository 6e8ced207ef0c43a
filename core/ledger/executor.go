package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"secureflow/core/events"
	"secureflow/core/state"
	"secureflow/core/types"
	"secureflow/crypto"
	"secureflow/native/bank"
	"secureflow/native/escrow"
	"secureflow/observability"
	"secureflow/observability/logging"
	telemetry "secureflow/observability/otel"
	"secureflow/storage"
)

// DefaultCustodyLabel derives the custody account when none is configured.
const DefaultCustodyLabel = "secureflow/escrow-custody"

var errNilOperation = errors.New("ledger: operation function required")

// Options configures an Executor.
type Options struct {
	Custody [20]byte
	Limits  *escrow.Limits
	Logger  *slog.Logger
	// Sink receives events after their operation committed.
	Sink  events.Emitter
	Clock func() time.Time
}

// Op describes one caller-initiated operation.
type Op struct {
	Name   string
	Caller [20]byte
	// Now overrides the logical time the operation observes. Zero uses the
	// executor clock.
	Now uint64
}

// Receipt summarises a committed operation.
type Receipt struct {
	OpID   string
	Seq    uint64
	Digest [32]byte
	Time   uint64
	Events []*types.Event
}

// Executor runs ledger operations one at a time. Each operation sees the
// writes of every operation committed before it; a failed operation leaves
// neither state changes nor events behind.
type Executor struct {
	mu     sync.Mutex
	state  *state.Manager
	engine *escrow.Engine
	bank   *bank.Ledger
	buffer events.Buffer
	sink   events.Emitter
	logger *slog.Logger
	clock  func() time.Time
	tracer trace.Tracer
	opTime uint64
}

// New wires an executor over db.
func New(db storage.Database, opts Options) (*Executor, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: database required")
	}
	custody := opts.Custody
	if custody == ([20]byte{}) {
		custody = crypto.LabelAddress(DefaultCustodyLabel)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	sink := opts.Sink
	if sink == nil {
		sink = events.NoopEmitter{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	mgr := state.NewManager(db)
	x := &Executor{
		state:  mgr,
		engine: escrow.NewEngine(),
		bank:   bank.NewLedger(mgr, custody),
		sink:   sink,
		logger: logger.With(slog.String("component", "ledger")),
		clock:  clock,
		tracer: otel.Tracer(telemetry.TracerName),
	}
	if opts.Limits != nil {
		x.engine.SetLimits(*opts.Limits)
	}
	x.engine.SetState(mgr)
	x.engine.SetGateway(x.bank)
	x.engine.SetEmitter(&x.buffer)
	x.engine.SetNowFunc(func() uint64 { return x.opTime })

	head, err := loadHead(mgr)
	if err != nil {
		return nil, err
	}
	observability.Ledger().SetJournalHeight(head.Seq)
	return x, nil
}

// Custody returns the account holding escrowed value.
func (x *Executor) Custody() [20]byte { return x.bank.Custody() }

func (x *Executor) now(op Op) uint64 {
	if op.Now != 0 {
		return op.Now
	}
	return uint64(x.clock().Unix())
}

// Execute runs fn as one atomic operation. On success every write, the
// journal entry and the buffered events are committed together; on failure
// the overlay and the buffer are dropped and the error is returned unchanged.
func (x *Executor) Execute(ctx context.Context, op Op, fn func(*escrow.Engine, *bank.Ledger) error) (*Receipt, error) {
	if fn == nil {
		return nil, errNilOperation
	}
	if ctx == nil {
		ctx = context.Background()
	}
	name := strings.TrimSpace(op.Name)
	if name == "" {
		name = "unknown"
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opID := uuid.NewString()
	caller := crypto.FormatAccount(op.Caller)
	ctx, span := x.tracer.Start(ctx, "ledger."+name, trace.WithAttributes(
		attribute.String("ledger.op_id", opID),
		attribute.String("ledger.operation", name),
		attribute.String("ledger.caller", caller),
	))
	defer span.End()

	started := time.Now()
	x.opTime = x.now(op)
	x.buffer.Reset()
	log := x.logger.With(
		slog.String("op_id", opID),
		slog.String("operation", name),
		slog.String("caller", caller),
	)

	fail := func(err error) (*Receipt, error) {
		x.state.Discard()
		x.buffer.Reset()
		reason := observability.Reason(err)
		observability.Ledger().Observe(ctx, name, err, reason, time.Since(started))
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		log.Warn("operation rejected", slog.String("outcome", "error"), slog.Any("error", err))
		return nil, err
	}

	if err := fn(x.engine, x.bank); err != nil {
		return fail(err)
	}

	committed := eventPayloads(x.buffer.Events())
	entry := &Entry{
		OpID:   opID,
		Name:   name,
		Caller: op.Caller,
		Time:   x.opTime,
		Events: recordEvents(committed),
	}
	head, err := appendEntry(x.state, entry)
	if err != nil {
		return fail(err)
	}
	if err := x.state.Commit(); err != nil {
		return fail(err)
	}

	for _, evt := range x.buffer.Events() {
		observability.Events().RecordEvent(evt.EventType())
	}
	x.buffer.Flush(x.sink)
	x.publishBalances(committed)
	observability.Ledger().Observe(ctx, name, nil, "", time.Since(started))
	observability.Ledger().SetJournalHeight(head.Seq)
	span.SetAttributes(attribute.Int64("ledger.seq", int64(head.Seq)))
	span.SetStatus(codes.Ok, "")

	log.Info("operation committed",
		slog.String("outcome", "success"),
		slog.Uint64("seq", head.Seq),
		slog.Int("events", len(committed)),
	)
	for _, evt := range committed {
		log.Debug("event", slog.String("type", evt.Type), logging.MaskAttributes("attributes", evt.AttributeKeys(), evt.Attributes))
	}

	return &Receipt{
		OpID:   opID,
		Seq:    head.Seq,
		Digest: head.Digest,
		Time:   x.opTime,
		Events: committed,
	}, nil
}

// View runs fn against committed state. Writes made by fn are discarded.
func (x *Executor) View(fn func(*escrow.Engine, *bank.Ledger) error) error {
	if fn == nil {
		return errNilOperation
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	defer x.state.Discard()
	x.opTime = uint64(x.clock().Unix())
	return fn(x.engine, x.bank)
}

// Head returns the latest committed journal position.
func (x *Executor) Head() (Head, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return loadHead(x.state)
}

// Entry returns the journal entry with the given sequence number.
func (x *Executor) Entry(seq uint64) (*Entry, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return loadEntry(x.state, seq)
}

// Verify recomputes the journal digest chain.
func (x *Executor) Verify() (Head, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return verifyJournal(x.state)
}

func eventPayloads(evts []events.Event) []*types.Event {
	out := make([]*types.Event, 0, len(evts))
	for _, evt := range evts {
		carrier, ok := evt.(interface{ Event() *types.Event })
		if !ok || carrier.Event() == nil {
			out = append(out, &types.Event{Type: evt.EventType(), Attributes: map[string]string{}})
			continue
		}
		out = append(out, carrier.Event())
	}
	return out
}

// publishBalances refreshes the reserve and fee gauges for every asset the
// committed events mention.
func (x *Executor) publishBalances(evts []*types.Event) {
	seen := make(map[string]struct{})
	for _, evt := range evts {
		raw, ok := evt.Attributes["asset"]
		if !ok {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		asset, err := crypto.ParseAddress("0x" + raw)
		if err != nil {
			continue
		}
		label := crypto.FormatAsset(asset)
		if reserve, err := x.engine.Reserve(asset); err == nil {
			observability.Ledger().SetReserve(label, toFloat(reserve))
		}
		if accrued, err := x.engine.AccruedFees(asset); err == nil {
			observability.Ledger().SetAccruedFees(label, toFloat(accrued))
		}
	}
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
