package escrow

// milestoneContext loads an escrow and one of its milestones after checking
// that the caller holds the required role and the escrow is in progress.
func (e *Engine) milestoneContext(caller [20]byte, id, index uint64, beneficiary bool) (*Escrow, *Milestone, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, nil, err
	}
	if beneficiary {
		if esc.Beneficiary == ([20]byte{}) || caller != esc.Beneficiary {
			return nil, nil, errorf(ErrUnauthorized, "not beneficiary")
		}
	} else if caller != esc.Depositor {
		return nil, nil, errorf(ErrUnauthorized, "not depositor")
	}
	if esc.Status != StatusInProgress {
		return nil, nil, errorf(ErrInvalidStatus, "escrow %d is %s", id, esc.Status)
	}
	m, err := e.loadMilestone(esc, index)
	if err != nil {
		return nil, nil, err
	}
	return esc, m, nil
}

// Submit marks a milestone as delivered. A non-empty description replaces the
// one set at creation.
func (e *Engine) Submit(caller [20]byte, id, index uint64, description string) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	now := e.now()
	esc, m, err := e.milestoneContext(caller, id, index, true)
	if err != nil {
		return err
	}
	if m.Status != MilestoneNotStarted {
		return errorf(ErrAlreadySubmitted, "milestone %d is %s", index, m.Status)
	}
	m.Status = MilestoneSubmitted
	m.SubmittedAt = now
	if description != "" {
		m.Description = description
	}
	if err := e.storeMilestone(m); err != nil {
		return err
	}
	e.emit(NewMilestoneEvent(EventTypeMilestoneSubmitted, esc, m, caller))
	return nil
}

// Approve pays a submitted milestone to the beneficiary. Every ledger write
// happens before the outbound transfer.
func (e *Engine) Approve(caller [20]byte, id, index uint64) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	now := e.now()
	esc, m, err := e.milestoneContext(caller, id, index, false)
	if err != nil {
		return err
	}
	if m.Status != MilestoneSubmitted {
		return errorf(ErrInvalidStatus, "milestone %d is %s", index, m.Status)
	}
	m.Status = MilestoneApproved
	m.ApprovedAt = now
	released, err := e.payout(esc, m.Amount)
	if err != nil {
		return err
	}
	if e.reputationEligible(esc) {
		if err := e.award(esc.Beneficiary, esc.ID, e.limits.MilestoneReputation, "milestone_approved"); err != nil {
			return err
		}
	}
	if err := e.storeMilestone(m); err != nil {
		return err
	}
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	if err := e.push(esc.Asset, esc.Beneficiary, m.Amount); err != nil {
		return err
	}
	e.emit(NewMilestoneEvent(EventTypeMilestoneApproved, esc, m, caller))
	if released {
		e.emit(NewReleasedEvent(esc))
	}
	return nil
}

// Reject sends a submitted milestone back to the beneficiary. No funds move.
func (e *Engine) Reject(caller [20]byte, id, index uint64, reason string) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	now := e.now()
	esc, m, err := e.milestoneContext(caller, id, index, false)
	if err != nil {
		return err
	}
	if m.Status != MilestoneSubmitted {
		return errorf(ErrInvalidStatus, "milestone %d is %s", index, m.Status)
	}
	m.Status = MilestoneRejected
	m.DisputedBy = caller
	m.DisputedAt = now
	m.DisputeReason = reason
	if err := e.storeMilestone(m); err != nil {
		return err
	}
	e.emit(NewMilestoneEvent(EventTypeMilestoneRejected, esc, m, caller))
	return nil
}

// Resubmit returns a rejected milestone to review and restarts its dispute
// window.
func (e *Engine) Resubmit(caller [20]byte, id, index uint64, description string) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	now := e.now()
	esc, m, err := e.milestoneContext(caller, id, index, true)
	if err != nil {
		return err
	}
	if m.Status != MilestoneRejected {
		return errorf(ErrInvalidStatus, "milestone %d is %s", index, m.Status)
	}
	m.Status = MilestoneSubmitted
	m.SubmittedAt = now
	if description != "" {
		m.Description = description
	}
	if err := e.storeMilestone(m); err != nil {
		return err
	}
	e.emit(NewMilestoneEvent(EventTypeMilestoneResubmitted, esc, m, caller))
	return nil
}
