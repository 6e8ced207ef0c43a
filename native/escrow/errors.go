package escrow

import (
	"errors"
	"fmt"

	"secureflow/native/common"
)

var (
	ErrNotInitialized     = errors.New("escrow: module not initialized")
	ErrAlreadyInitialized = errors.New("escrow: module already initialized")
	ErrUnauthorized       = errors.New("escrow: unauthorized")
	ErrPaused             = errors.New("escrow: paused")
	ErrJobCreationPaused  = errors.New("escrow: job creation paused")
	ErrZeroAddress        = errors.New("escrow: zero address")

	ErrEscrowNotFound    = errors.New("escrow: escrow not found")
	ErrMilestoneNotFound = errors.New("escrow: milestone not found")
	ErrInvalidStatus     = errors.New("escrow: invalid status")

	ErrTokenNotWhitelisted    = errors.New("escrow: token not whitelisted")
	ErrTooManyArbiters        = errors.New("escrow: arbiter count out of range")
	ErrArbiterNotAuthorized   = errors.New("escrow: arbiter not authorized")
	ErrInvalidConfirmations   = errors.New("escrow: invalid confirmation count")
	ErrBeneficiaryIsDepositor = errors.New("escrow: cannot escrow to self")
	ErrInvalidDuration        = errors.New("escrow: invalid duration")
	ErrEmptyMilestones        = errors.New("escrow: no milestones")
	ErrTooManyMilestones      = errors.New("escrow: too many milestones")
	ErrMilestoneCountMismatch = errors.New("escrow: milestone amounts and descriptions differ in length")
	ErrZeroMilestoneAmount    = errors.New("escrow: milestone amount must be positive")
	ErrEmptyTitle             = errors.New("escrow: project title required")
	ErrValueMismatch          = errors.New("escrow: attached value does not match amount due")
	ErrInvalidAmount          = errors.New("escrow: invalid amount")

	ErrWorkAlreadyStarted        = errors.New("escrow: work already started")
	ErrAlreadySubmitted          = errors.New("escrow: milestone already submitted")
	ErrDisputePeriodExpired      = errors.New("escrow: dispute period expired")
	ErrInvalidAllocation         = errors.New("escrow: allocation exceeds milestone amount")
	ErrNothingToRefund           = errors.New("escrow: nothing to refund")
	ErrDeadlinePassed            = errors.New("escrow: deadline passed")
	ErrEmergencyPeriodNotReached = errors.New("escrow: emergency period not reached")
	ErrInvalidExtension          = errors.New("escrow: invalid extension")

	ErrNotOpenJob          = errors.New("escrow: not an open job")
	ErrAlreadyApplied      = errors.New("escrow: already applied")
	ErrTooManyApplications = errors.New("escrow: application limit reached")
	ErrSelfApplication     = errors.New("escrow: depositor cannot apply")
	ErrEmptyCoverLetter    = errors.New("escrow: cover letter required")
	ErrNotApplicant        = errors.New("escrow: freelancer has not applied")

	ErrAmountOverflow   = common.ErrAmountOverflow
	ErrReserveUnderflow = errors.New("escrow: reserve underflow")
	ErrTransferFailed   = errors.New("escrow: asset transfer failed")
)

func errorf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
