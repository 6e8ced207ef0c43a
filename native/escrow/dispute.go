package escrow

import (
	"math"

	"github.com/holiman/uint256"

	"secureflow/native/common"
)

// Dispute contests a submitted milestone within the dispute period. The whole
// escrow is frozen in Disputed until the milestone is resolved.
func (e *Engine) Dispute(caller [20]byte, id, index uint64, reason string) error {
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
	// A submitted milestone can outlive an expired escrow; terminal escrows
	// must stay terminal.
	if esc.Status != StatusInProgress && esc.Status != StatusDisputed {
		return errorf(ErrInvalidStatus, "escrow %d is %s", id, esc.Status)
	}
	m, err := e.loadMilestone(esc, index)
	if err != nil {
		return err
	}
	if m.Status != MilestoneSubmitted {
		return errorf(ErrInvalidStatus, "milestone %d is %s", index, m.Status)
	}
	closes := m.SubmittedAt
	if closes > math.MaxUint64-e.limits.DisputePeriod {
		closes = math.MaxUint64
	} else {
		closes += e.limits.DisputePeriod
	}
	if now > closes {
		return errorf(ErrDisputePeriodExpired, "window closed at %d", closes)
	}
	m.Status = MilestoneDisputed
	m.DisputedAt = now
	m.DisputedBy = caller
	m.DisputeReason = reason
	esc.Status = StatusDisputed
	if err := e.storeMilestone(m); err != nil {
		return err
	}
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	e.emit(NewMilestoneEvent(EventTypeMilestoneDisputed, esc, m, caller))
	return nil
}

// Resolve splits a disputed milestone between beneficiary and depositor. The
// depositor, the beneficiary or any registered arbiter may resolve; the
// escrow's confirmation count is not consulted.
func (e *Engine) Resolve(caller [20]byte, id, index uint64, beneficiaryAmount *uint256.Int) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	now := e.now()
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if caller != esc.Depositor && caller != esc.Beneficiary && !esc.HasArbiter(caller) {
		return errorf(ErrUnauthorized, "not a party or arbiter")
	}
	if esc.Status != StatusDisputed {
		return errorf(ErrInvalidStatus, "escrow %d is %s", id, esc.Status)
	}
	m, err := e.loadMilestone(esc, index)
	if err != nil {
		return err
	}
	if m.Status != MilestoneDisputed {
		return errorf(ErrInvalidStatus, "milestone %d is %s", index, m.Status)
	}
	toBeneficiary := common.CloneAmount(beneficiaryAmount)
	if m.Amount.Lt(toBeneficiary) {
		return errorf(ErrInvalidAllocation, "%s > %s", toBeneficiary, m.Amount)
	}
	toDepositor, err := common.Sub(m.Amount, toBeneficiary)
	if err != nil {
		return err
	}

	m.Status = MilestoneResolved
	m.ApprovedAt = now
	esc.Status = StatusInProgress
	// Both shares leave the escrow, so the whole milestone counts as paid out
	// and the reserve drops by their sum.
	released, err := e.payout(esc, m.Amount)
	if err != nil {
		return err
	}
	if esc.DisputeRefunded, err = common.Add(esc.DisputeRefunded, toDepositor); err != nil {
		return err
	}
	if !released {
		open, err := e.hasOpenDispute(esc, index)
		if err != nil {
			return err
		}
		if open {
			esc.Status = StatusDisputed
		}
	}
	if err := e.storeMilestone(m); err != nil {
		return err
	}
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	if err := e.push(esc.Asset, esc.Beneficiary, toBeneficiary); err != nil {
		return err
	}
	if err := e.push(esc.Asset, esc.Depositor, toDepositor); err != nil {
		return err
	}
	e.emit(NewDisputeResolvedEvent(esc, m, caller, toBeneficiary, toDepositor))
	if released {
		e.emit(NewReleasedEvent(esc))
	}
	return nil
}

// hasOpenDispute reports whether a milestone other than skip is still disputed.
func (e *Engine) hasOpenDispute(esc *Escrow, skip uint64) (bool, error) {
	for i := uint64(0); i < esc.MilestoneCount; i++ {
		if i == skip {
			continue
		}
		m, err := e.loadMilestone(esc, i)
		if err != nil {
			return false, err
		}
		if m.Status == MilestoneDisputed {
			return true, nil
		}
	}
	return false, nil
}
