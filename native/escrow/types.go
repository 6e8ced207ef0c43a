package escrow

import (
	"github.com/holiman/uint256"

	"secureflow/native/common"
)

// EscrowStatus represents the lifecycle states of an escrow.
type EscrowStatus uint8

const (
	StatusPending EscrowStatus = iota
	StatusInProgress
	StatusReleased
	StatusRefunded
	StatusDisputed
	StatusExpired
)

func (s EscrowStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in_progress"
	case StatusReleased:
		return "released"
	case StatusRefunded:
		return "refunded"
	case StatusDisputed:
		return "disputed"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Valid reports whether the status value is within the supported range.
func (s EscrowStatus) Valid() bool { return s <= StatusExpired }

// Terminal reports whether no further mutation is allowed.
func (s EscrowStatus) Terminal() bool {
	return s == StatusReleased || s == StatusRefunded || s == StatusExpired
}

// MilestoneStatus represents the lifecycle states of a single milestone.
type MilestoneStatus uint8

const (
	MilestoneNotStarted MilestoneStatus = iota
	MilestoneSubmitted
	MilestoneApproved
	MilestoneDisputed
	MilestoneResolved
	MilestoneRejected
)

func (s MilestoneStatus) String() string {
	switch s {
	case MilestoneNotStarted:
		return "not_started"
	case MilestoneSubmitted:
		return "submitted"
	case MilestoneApproved:
		return "approved"
	case MilestoneDisputed:
		return "disputed"
	case MilestoneResolved:
		return "resolved"
	case MilestoneRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Escrow is a funded agreement between a depositor and a beneficiary. A zero
// beneficiary marks an open job; a zero asset denotes the native currency.
// PaidAmount counts every milestone amount that has left the escrow, including
// shares returned to the depositor by dispute resolution; DisputeRefunded
// records that returned part.
type Escrow struct {
	ID                    uint64
	Depositor             [20]byte
	Beneficiary           [20]byte
	Arbiters              [][20]byte
	RequiredConfirmations uint64
	Asset                 [20]byte
	TotalAmount           *uint256.Int
	PaidAmount            *uint256.Int
	PlatformFee           *uint256.Int
	DisputeRefunded       *uint256.Int
	Deadline              uint64
	CreatedAt             uint64
	MilestoneCount        uint64
	OpenJob               bool
	WorkStarted           bool
	Title                 string
	Description           string
	Status                EscrowStatus
}

// Remaining returns the outstanding balance still held for the beneficiary.
func (e *Escrow) Remaining() *uint256.Int {
	total := common.CloneAmount(e.TotalAmount)
	paid := common.CloneAmount(e.PaidAmount)
	if total.Lt(paid) {
		return common.Zero()
	}
	return total.Sub(total, paid)
}

// HasArbiter reports whether addr is registered on the escrow.
func (e *Escrow) HasArbiter(addr [20]byte) bool {
	for _, arbiter := range e.Arbiters {
		if arbiter == addr {
			return true
		}
	}
	return false
}

// Milestone is a fixed-amount deliverable addressed by (escrow id, index).
type Milestone struct {
	EscrowID      uint64
	Index         uint64
	Description   string
	Amount        *uint256.Int
	Status        MilestoneStatus
	SubmittedAt   uint64
	ApprovedAt    uint64
	DisputedAt    uint64
	DisputedBy    [20]byte
	DisputeReason string
}

// Application records a freelancer's bid on an open job.
type Application struct {
	Freelancer       [20]byte
	CoverLetter      string
	ProposedTimeline uint64
	AppliedAt        uint64
}

// CreateParams carries the inputs of escrow creation.
type CreateParams struct {
	Beneficiary           [20]byte
	Arbiters              [][20]byte
	RequiredConfirmations uint64
	MilestoneAmounts      []*uint256.Int
	MilestoneDescriptions []string
	Asset                 [20]byte
	Duration              uint64
	Title                 string
	Description           string
}

// Limits are the configurable bounds applied by the engine.
type Limits struct {
	MinDuration         uint64
	MaxDuration         uint64
	DisputePeriod       uint64
	EmergencyDelay      uint64
	MaxExtension        uint64
	MaxArbiters         uint64
	MaxMilestones       uint64
	MaxApplications     uint64
	MilestoneReputation uint64
	EscrowReputation    uint64
	// ReputationThreshold is the minimum escrow total that earns points.
	ReputationThreshold *uint256.Int
}

// DefaultLimits returns the production defaults.
func DefaultLimits() Limits {
	return Limits{
		MinDuration:         3600,
		MaxDuration:         365 * 24 * 3600,
		DisputePeriod:       7 * 24 * 3600,
		EmergencyDelay:      30 * 24 * 3600,
		MaxExtension:        30 * 24 * 3600,
		MaxArbiters:         5,
		MaxMilestones:       20,
		MaxApplications:     50,
		MilestoneReputation: 10,
		EscrowReputation:    25,
		ReputationThreshold: uint256.NewInt(10_000_000_000_000_000),
	}
}

// Module names understood by the pause guard.
const (
	ModuleEscrow      = "escrow"
	ModuleJobCreation = "escrow/create"
)

// AdminConfig is the persisted administrative configuration.
type AdminConfig struct {
	Initialized       bool
	Owner             [20]byte
	FeeCollector      [20]byte
	FeeBps            uint32
	Paused            bool
	JobCreationPaused bool
	Assets            [][20]byte
	Arbiters          [][20]byte
}

// IsPaused implements common.PauseView.
func (c *AdminConfig) IsPaused(module string) bool {
	if c == nil {
		return false
	}
	switch module {
	case ModuleEscrow:
		return c.Paused
	case ModuleJobCreation:
		return c.JobCreationPaused
	default:
		return false
	}
}

// AssetWhitelisted reports whether asset may be escrowed. The native asset is
// always allowed.
func (c *AdminConfig) AssetWhitelisted(asset [20]byte) bool {
	if asset == ([20]byte{}) {
		return true
	}
	return containsAddress(c.Assets, asset)
}

// ArbiterAuthorized reports whether addr may be named as an arbiter.
func (c *AdminConfig) ArbiterAuthorized(addr [20]byte) bool {
	return containsAddress(c.Arbiters, addr)
}

func containsAddress(list [][20]byte, addr [20]byte) bool {
	for _, item := range list {
		if item == addr {
			return true
		}
	}
	return false
}

func removeAddress(list [][20]byte, addr [20]byte) [][20]byte {
	out := list[:0]
	for _, item := range list {
		if item != addr {
			out = append(out, item)
		}
	}
	return out
}
