package escrow

import (
	"github.com/holiman/uint256"
)

// Summary is the read projection of an escrow.
type Summary struct {
	ID                    uint64
	Depositor             [20]byte
	Beneficiary           [20]byte
	Arbiters              [][20]byte
	RequiredConfirmations uint64
	Asset                 [20]byte
	Status                EscrowStatus
	TotalAmount           *uint256.Int
	PaidAmount            *uint256.Int
	RemainingAmount       *uint256.Int
	DisputeRefunded       *uint256.Int
	PlatformFee           *uint256.Int
	Deadline              uint64
	CreatedAt             uint64
	WorkStarted           bool
	MilestoneCount        uint64
	OpenJob               bool
	Title                 string
	Description           string
}

// Escrow returns the summary of escrow id.
func (e *Engine) Escrow(id uint64) (*Summary, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	return &Summary{
		ID:                    esc.ID,
		Depositor:             esc.Depositor,
		Beneficiary:           esc.Beneficiary,
		Arbiters:              esc.Arbiters,
		RequiredConfirmations: esc.RequiredConfirmations,
		Asset:                 esc.Asset,
		Status:                esc.Status,
		TotalAmount:           esc.TotalAmount,
		PaidAmount:            esc.PaidAmount,
		RemainingAmount:       esc.Remaining(),
		DisputeRefunded:       esc.DisputeRefunded,
		PlatformFee:           esc.PlatformFee,
		Deadline:              esc.Deadline,
		CreatedAt:             esc.CreatedAt,
		WorkStarted:           esc.WorkStarted,
		MilestoneCount:        esc.MilestoneCount,
		OpenJob:               esc.OpenJob,
		Title:                 esc.Title,
		Description:           esc.Description,
	}, nil
}

// Milestone returns a single milestone.
func (e *Engine) Milestone(id, index uint64) (*Milestone, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	return e.loadMilestone(esc, index)
}

// Milestones returns every milestone of escrow id in index order.
func (e *Engine) Milestones(id uint64) ([]*Milestone, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return nil, err
	}
	out := make([]*Milestone, 0, esc.MilestoneCount)
	for i := uint64(0); i < esc.MilestoneCount; i++ {
		m, err := e.loadMilestone(esc, i)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// UserEscrows lists the escrows addr participates in, oldest first.
func (e *Engine) UserEscrows(addr [20]byte) ([]uint64, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.userEscrows(addr)
}

// Applications pages through the applications of escrow id. A zero limit
// returns everything from offset.
func (e *Engine) Applications(id uint64, offset, limit uint64) ([]Application, error) {
	if _, err := e.loadEscrow(id); err != nil {
		return nil, err
	}
	apps, err := e.loadApplications(id)
	if err != nil {
		return nil, err
	}
	total := uint64(len(apps))
	if offset >= total {
		return []Application{}, nil
	}
	end := total
	if limit > 0 && limit < total-offset {
		end = offset + limit
	}
	return apps[offset:end], nil
}

func (e *Engine) ApplicationCount(id uint64) (uint64, error) {
	if _, err := e.loadEscrow(id); err != nil {
		return 0, err
	}
	apps, err := e.loadApplications(id)
	if err != nil {
		return 0, err
	}
	return uint64(len(apps)), nil
}

func (e *Engine) HasApplied(id uint64, addr [20]byte) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	return e.hasApplied(id, addr)
}

func (e *Engine) IsArbiter(id uint64, addr [20]byte) (bool, error) {
	esc, err := e.loadEscrow(id)
	if err != nil {
		return false, err
	}
	return esc.HasArbiter(addr), nil
}

// Reserve returns the amount of asset committed to non-terminal escrows.
func (e *Engine) Reserve(asset [20]byte) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.reserve(asset)
}

// AccruedFees returns the withdrawable platform fees for asset.
func (e *Engine) AccruedFees(asset [20]byte) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.fees.Accrued(asset)
}

// HeldFees returns fees collected from escrows where work has not started.
func (e *Engine) HeldFees(asset [20]byte) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.fees.Unaccrued(asset)
}

func (e *Engine) Reputation(addr [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	return e.reputation.Score(addr)
}

func (e *Engine) CompletedEscrows(addr [20]byte) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	return e.reputation.Completed(addr)
}

// Config returns the persisted administrative configuration.
func (e *Engine) Config() (*AdminConfig, error) {
	return e.loadConfig()
}

// NextEscrowID returns the id the next created escrow will receive.
func (e *Engine) NextEscrowID() (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	return e.peekNextID()
}
