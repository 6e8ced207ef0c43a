package escrow

import (
	"math"
	"strings"

	"github.com/holiman/uint256"

	"secureflow/native/common"
	"secureflow/native/fees"
)

// Create opens an escrow funded by pulling total plus fee from the caller
// through the gateway.
func (e *Engine) Create(caller [20]byte, p CreateParams) (uint64, error) {
	return e.create(caller, p, nil)
}

// CreateNative opens an escrow in the native asset. attached is the value sent
// with the call and must equal total plus fee exactly.
func (e *Engine) CreateNative(caller [20]byte, p CreateParams, attached *uint256.Int) (uint64, error) {
	p.Asset = [20]byte{}
	if attached == nil {
		attached = common.Zero()
	}
	return e.create(caller, p, attached)
}

func (e *Engine) create(caller [20]byte, p CreateParams, attached *uint256.Int) (uint64, error) {
	cfg, err := e.operational(ModuleJobCreation)
	if err != nil {
		return 0, err
	}
	now := e.now()
	total, err := e.validateCreate(cfg, caller, &p)
	if err != nil {
		return 0, err
	}
	fee, gross, err := fees.Quote(total, cfg.FeeBps)
	if err != nil {
		return 0, err
	}
	if attached != nil && !attached.Eq(gross) {
		return 0, errorf(ErrValueMismatch, "attached %s, due %s", attached, gross)
	}
	if now > math.MaxUint64-p.Duration {
		return 0, errorf(ErrInvalidDuration, "deadline overflows")
	}
	if err := e.pull(p.Asset, caller, gross); err != nil {
		return 0, err
	}

	id, err := e.allocateID()
	if err != nil {
		return 0, err
	}
	esc := &Escrow{
		ID:                    id,
		Depositor:             caller,
		Beneficiary:           p.Beneficiary,
		Arbiters:              append([][20]byte(nil), p.Arbiters...),
		RequiredConfirmations: p.RequiredConfirmations,
		Asset:                 p.Asset,
		TotalAmount:           total,
		PaidAmount:            common.Zero(),
		PlatformFee:           fee,
		DisputeRefunded:       common.Zero(),
		Deadline:              now + p.Duration,
		CreatedAt:             now,
		MilestoneCount:        uint64(len(p.MilestoneAmounts)),
		OpenJob:               p.Beneficiary == ([20]byte{}),
		Title:                 p.Title,
		Description:           p.Description,
		Status:                StatusPending,
	}
	if err := e.increaseReserve(esc.Asset, total); err != nil {
		return 0, err
	}
	if err := e.fees.Hold(esc.Asset, fee); err != nil {
		return 0, err
	}
	if err := e.storeEscrow(esc); err != nil {
		return 0, err
	}
	for i, amount := range p.MilestoneAmounts {
		m := &Milestone{
			EscrowID:    id,
			Index:       uint64(i),
			Description: p.MilestoneDescriptions[i],
			Amount:      common.CloneAmount(amount),
			Status:      MilestoneNotStarted,
		}
		if err := e.storeMilestone(m); err != nil {
			return 0, err
		}
	}
	if err := e.indexUser(esc.Depositor, id); err != nil {
		return 0, err
	}
	if !esc.OpenJob {
		if err := e.indexUser(esc.Beneficiary, id); err != nil {
			return 0, err
		}
	}
	e.emit(NewCreatedEvent(esc))
	return id, nil
}

// validateCreate checks creation inputs in a fixed order and returns the sum
// of the milestone amounts.
func (e *Engine) validateCreate(cfg *AdminConfig, caller [20]byte, p *CreateParams) (*uint256.Int, error) {
	if !cfg.AssetWhitelisted(p.Asset) {
		return nil, errorf(ErrTokenNotWhitelisted, "%x", p.Asset)
	}
	if len(p.Arbiters) == 0 || uint64(len(p.Arbiters)) > e.limits.MaxArbiters {
		return nil, errorf(ErrTooManyArbiters, "%d arbiters, max %d", len(p.Arbiters), e.limits.MaxArbiters)
	}
	for _, arbiter := range p.Arbiters {
		if !cfg.ArbiterAuthorized(arbiter) {
			return nil, errorf(ErrArbiterNotAuthorized, "%x", arbiter)
		}
	}
	if p.RequiredConfirmations == 0 || p.RequiredConfirmations > uint64(len(p.Arbiters)) {
		return nil, errorf(ErrInvalidConfirmations, "%d of %d", p.RequiredConfirmations, len(p.Arbiters))
	}
	if p.Beneficiary == caller {
		return nil, ErrBeneficiaryIsDepositor
	}
	if p.Duration < e.limits.MinDuration || p.Duration > e.limits.MaxDuration {
		return nil, errorf(ErrInvalidDuration, "%ds outside [%d, %d]", p.Duration, e.limits.MinDuration, e.limits.MaxDuration)
	}
	if len(p.MilestoneAmounts) == 0 {
		return nil, ErrEmptyMilestones
	}
	if len(p.MilestoneAmounts) != len(p.MilestoneDescriptions) {
		return nil, errorf(ErrMilestoneCountMismatch, "%d amounts, %d descriptions", len(p.MilestoneAmounts), len(p.MilestoneDescriptions))
	}
	if uint64(len(p.MilestoneAmounts)) > e.limits.MaxMilestones {
		return nil, errorf(ErrTooManyMilestones, "%d, max %d", len(p.MilestoneAmounts), e.limits.MaxMilestones)
	}
	total := common.Zero()
	for i, amount := range p.MilestoneAmounts {
		if amount == nil || amount.IsZero() {
			return nil, errorf(ErrZeroMilestoneAmount, "milestone %d", i)
		}
		next, err := common.Add(total, amount)
		if err != nil {
			return nil, err
		}
		total = next
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, ErrEmptyTitle
	}
	return total, nil
}

// StartWork moves a pending escrow into progress on behalf of its beneficiary
// and accrues the platform fee.
func (e *Engine) StartWork(caller [20]byte, id uint64) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if esc.Beneficiary == ([20]byte{}) || caller != esc.Beneficiary {
		return errorf(ErrUnauthorized, "not beneficiary")
	}
	if esc.WorkStarted {
		return ErrWorkAlreadyStarted
	}
	if esc.Status != StatusPending {
		return errorf(ErrInvalidStatus, "escrow %d is %s", id, esc.Status)
	}
	esc.WorkStarted = true
	esc.Status = StatusInProgress
	if err := e.fees.Accrue(esc.Asset, esc.PlatformFee); err != nil {
		return err
	}
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	e.emit(NewWorkStartedEvent(esc))
	return nil
}

// refundable returns the outstanding balance and the amount to send back. A
// fee that never accrued travels back with the balance.
func (e *Engine) refundable(esc *Escrow) (outstanding, payback *uint256.Int, err error) {
	outstanding = esc.Remaining()
	payback = common.CloneAmount(outstanding)
	if esc.WorkStarted {
		return outstanding, payback, nil
	}
	payback, err = common.Add(payback, esc.PlatformFee)
	if err != nil {
		return nil, nil, err
	}
	return outstanding, payback, nil
}

func (e *Engine) settleRefund(esc *Escrow, outstanding *uint256.Int) error {
	if err := e.decreaseReserve(esc.Asset, outstanding); err != nil {
		return err
	}
	if !esc.WorkStarted {
		if err := e.fees.Release(esc.Asset, esc.PlatformFee); err != nil {
			return err
		}
	}
	return e.storeEscrow(esc)
}

// Refund returns the outstanding balance of a pending escrow to its depositor
// before the deadline.
func (e *Engine) Refund(caller [20]byte, id uint64) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	now := e.now()
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if caller != esc.Depositor {
		return errorf(ErrUnauthorized, "not depositor")
	}
	if esc.Status.Terminal() || esc.Remaining().IsZero() {
		return errorf(ErrNothingToRefund, "escrow %d is %s", id, esc.Status)
	}
	if esc.Status != StatusPending {
		return errorf(ErrInvalidStatus, "escrow %d is %s", id, esc.Status)
	}
	if esc.WorkStarted {
		return ErrWorkAlreadyStarted
	}
	if now >= esc.Deadline {
		return errorf(ErrDeadlinePassed, "deadline %d, now %d", esc.Deadline, now)
	}
	outstanding, payback, err := e.refundable(esc)
	if err != nil {
		return err
	}
	esc.Status = StatusRefunded
	if err := e.settleRefund(esc, outstanding); err != nil {
		return err
	}
	if err := e.push(esc.Asset, esc.Depositor, payback); err != nil {
		return err
	}
	e.emit(NewRefundedEvent(esc, payback))
	return nil
}

// EmergencyRefund lets the depositor reclaim the outstanding balance once the
// deadline plus the emergency delay has passed, whatever the escrow's state.
func (e *Engine) EmergencyRefund(caller [20]byte, id uint64) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	now := e.now()
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if caller != esc.Depositor {
		return errorf(ErrUnauthorized, "not depositor")
	}
	if esc.Status == StatusReleased || esc.Status == StatusRefunded {
		return errorf(ErrInvalidStatus, "escrow %d is %s", id, esc.Status)
	}
	unlock := esc.Deadline
	if unlock > math.MaxUint64-e.limits.EmergencyDelay {
		unlock = math.MaxUint64
	} else {
		unlock += e.limits.EmergencyDelay
	}
	if now <= unlock {
		return errorf(ErrEmergencyPeriodNotReached, "available after %d", unlock)
	}
	if esc.Status == StatusExpired || esc.Remaining().IsZero() {
		return errorf(ErrNothingToRefund, "escrow %d is %s", id, esc.Status)
	}
	outstanding, payback, err := e.refundable(esc)
	if err != nil {
		return err
	}
	esc.Status = StatusExpired
	if err := e.settleRefund(esc, outstanding); err != nil {
		return err
	}
	if err := e.push(esc.Asset, esc.Depositor, payback); err != nil {
		return err
	}
	e.emit(NewExpiredEvent(esc, payback))
	return nil
}

// ExtendDeadline pushes the deadline of an active escrow back by extra
// seconds, bounded per call.
func (e *Engine) ExtendDeadline(caller [20]byte, id uint64, extra uint64) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if caller != esc.Depositor {
		return errorf(ErrUnauthorized, "not depositor")
	}
	if esc.Status != StatusPending && esc.Status != StatusInProgress {
		return errorf(ErrInvalidStatus, "escrow %d is %s", id, esc.Status)
	}
	if extra == 0 || extra > e.limits.MaxExtension {
		return errorf(ErrInvalidExtension, "%ds, max %d", extra, e.limits.MaxExtension)
	}
	if esc.Deadline > math.MaxUint64-extra {
		return errorf(ErrInvalidExtension, "deadline overflows")
	}
	esc.Deadline += extra
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	e.emit(NewDeadlineExtendedEvent(esc, extra))
	return nil
}
