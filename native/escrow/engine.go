package escrow

import (
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"secureflow/core/events"
	"secureflow/core/types"
	"secureflow/native/common"
	"secureflow/native/fees"
	"secureflow/native/reputation"
)

var (
	errNilState   = errors.New("escrow engine: state not configured")
	errNilGateway = errors.New("escrow engine: transfer gateway not configured")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Gateway moves value in and out of the escrow module's custody. A failed
// transfer must leave the calling operation free to discard its writes.
type Gateway interface {
	TransferIn(asset, payer [20]byte, amount *uint256.Int) error
	TransferOut(asset, recipient [20]byte, amount *uint256.Int) error
	CustodyBalance(asset [20]byte) (*uint256.Int, error)
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine implements escrow lifecycle, milestone, dispute and marketplace
// operations over a ledger store. Each exported mutating method is one
// operation: it validates everything before writing, performs outbound
// transfers last, and expects the caller to discard the store overlay when it
// returns an error.
type Engine struct {
	state      engineState
	gateway    Gateway
	fees       *fees.Ledger
	reputation *reputation.Ledger
	limits     Limits
	emitter    events.Emitter
	nowFn      func() uint64
}

// NewEngine creates an escrow engine with default limits and a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		limits:  DefaultLimits(),
		emitter: events.NoopEmitter{},
		nowFn:   wallClock,
	}
}

func wallClock() uint64 { return uint64(time.Now().Unix()) }

// SetState configures the store used by the engine together with the fee and
// reputation ledgers that share it.
func (e *Engine) SetState(state engineState) {
	e.state = state
	if state == nil {
		e.fees = nil
		e.reputation = nil
		return
	}
	e.fees = fees.NewLedger(state)
	e.reputation = reputation.NewLedger(state)
}

// SetGateway configures the asset transfer gateway.
func (e *Engine) SetGateway(gateway Gateway) { e.gateway = gateway }

// SetLimits replaces the configured bounds.
func (e *Engine) SetLimits(limits Limits) {
	if limits.ReputationThreshold == nil {
		limits.ReputationThreshold = common.Zero()
	}
	e.limits = limits
}

// Limits returns the configured bounds.
func (e *Engine) Limits() Limits { return e.limits }

// SetNowFunc overrides the time source. The clock is read once per operation.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = wallClock
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() uint64 {
	if e == nil || e.nowFn == nil {
		return wallClock()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

// operational loads the admin configuration and rejects calls while the module
// is uninitialised or paused. Extra modules name additional pause switches.
func (e *Engine) operational(modules ...string) (*AdminConfig, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Initialized {
		return nil, ErrNotInitialized
	}
	if err := common.Guard(cfg, append([]string{ModuleEscrow}, modules...)...); err != nil {
		var paused *common.PausedError
		if errors.As(err, &paused) && paused.Module == ModuleJobCreation {
			return nil, ErrJobCreationPaused
		}
		return nil, ErrPaused
	}
	return cfg, nil
}

func (e *Engine) pull(asset, payer [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if e.gateway == nil {
		return errNilGateway
	}
	if err := e.gateway.TransferIn(asset, payer, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

func (e *Engine) push(asset, recipient [20]byte, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	if e.gateway == nil {
		return errNilGateway
	}
	if err := e.gateway.TransferOut(asset, recipient, amount); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

// reputationEligible reports whether an escrow's total clears the threshold.
func (e *Engine) reputationEligible(esc *Escrow) bool {
	threshold := e.limits.ReputationThreshold
	if threshold == nil {
		return true
	}
	return !esc.TotalAmount.Lt(threshold)
}

func (e *Engine) award(addr [20]byte, escrowID, points uint64, reason string) error {
	if points == 0 || addr == ([20]byte{}) {
		return nil
	}
	score, err := e.reputation.Award(addr, points)
	if err != nil {
		return err
	}
	e.emit(reputation.NewAwardedEvent(addr, escrowID, points, score, reason))
	return nil
}

// payout records amount as paid to the beneficiary and releases it from the
// reserve. When the escrow becomes fully paid it transitions to Released, both
// parties' completion counters advance and, for eligible escrows, completion
// reputation is awarded. The caller performs the transfer.
func (e *Engine) payout(esc *Escrow, amount *uint256.Int) (released bool, err error) {
	paid, err := common.Add(esc.PaidAmount, amount)
	if err != nil {
		return false, err
	}
	if esc.TotalAmount.Lt(paid) {
		return false, errorf(ErrInvalidAmount, "payout exceeds escrow total")
	}
	if err := e.decreaseReserve(esc.Asset, amount); err != nil {
		return false, err
	}
	esc.PaidAmount = paid
	if !paid.Eq(esc.TotalAmount) {
		return false, nil
	}
	esc.Status = StatusReleased
	eligible := e.reputationEligible(esc)
	for _, party := range [][20]byte{esc.Beneficiary, esc.Depositor} {
		if eligible {
			if err := e.award(party, esc.ID, e.limits.EscrowReputation, "escrow_completed"); err != nil {
				return false, err
			}
		}
		if _, err := e.reputation.RecordCompletion(party); err != nil {
			return false, err
		}
	}
	return true, nil
}
