package escrow

import "strings"

// Apply records the caller's application to an open job.
func (e *Engine) Apply(caller [20]byte, id uint64, coverLetter string, proposedTimeline uint64) error {
	if _, err := e.operational(); err != nil {
		return err
	}
	now := e.now()
	esc, err := e.loadEscrow(id)
	if err != nil {
		return err
	}
	if !esc.OpenJob {
		return errorf(ErrNotOpenJob, "escrow %d", id)
	}
	if esc.Status != StatusPending {
		return errorf(ErrInvalidStatus, "escrow %d is %s", id, esc.Status)
	}
	applied, err := e.hasApplied(id, caller)
	if err != nil {
		return err
	}
	if applied {
		return ErrAlreadyApplied
	}
	apps, err := e.loadApplications(id)
	if err != nil {
		return err
	}
	if uint64(len(apps)) >= e.limits.MaxApplications {
		return errorf(ErrTooManyApplications, "max %d", e.limits.MaxApplications)
	}
	if caller == esc.Depositor {
		return ErrSelfApplication
	}
	if strings.TrimSpace(coverLetter) == "" {
		return ErrEmptyCoverLetter
	}
	app := Application{
		Freelancer:       caller,
		CoverLetter:      coverLetter,
		ProposedTimeline: proposedTimeline,
		AppliedAt:        now,
	}
	apps = append(apps, app)
	if err := e.state.KVPut(applicationsKey(id), apps); err != nil {
		return err
	}
	if err := e.state.KVPut(appliedKey(id, caller), true); err != nil {
		return err
	}
	e.emit(NewJobAppliedEvent(esc, &app, len(apps)))
	return nil
}

// Accept assigns an applicant as the beneficiary of an open job.
func (e *Engine) Accept(caller [20]byte, id uint64, freelancer [20]byte) error {
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
	if !esc.OpenJob {
		return errorf(ErrNotOpenJob, "escrow %d", id)
	}
	if esc.Status != StatusPending {
		return errorf(ErrInvalidStatus, "escrow %d is %s", id, esc.Status)
	}
	applied, err := e.hasApplied(id, freelancer)
	if err != nil {
		return err
	}
	if !applied {
		return errorf(ErrNotApplicant, "%x", freelancer)
	}
	esc.Beneficiary = freelancer
	esc.OpenJob = false
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	if err := e.indexUser(freelancer, id); err != nil {
		return err
	}
	e.emit(NewJobAcceptedEvent(esc))
	return nil
}
