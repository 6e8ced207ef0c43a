package escrow

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"secureflow/native/common"
)

var (
	configKey          = []byte("escrow/config")
	nextIDKey          = []byte("escrow/next-id")
	recordPrefix       = []byte("escrow/record/")
	milestonePrefix    = []byte("escrow/milestone/")
	applicationsPrefix = []byte("escrow/applications/")
	appliedPrefix      = []byte("escrow/applied/")
	userIndexPrefix    = []byte("escrow/user/")
	reservePrefix      = []byte("escrow/reserve/")
)

func recordKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", recordPrefix, id))
}

func milestoneKey(id, index uint64) []byte {
	return []byte(fmt.Sprintf("%s%d/%d", milestonePrefix, id, index))
}

func applicationsKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%d", applicationsPrefix, id))
}

func appliedKey(id uint64, addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%d/%x", appliedPrefix, id, addr))
}

func userIndexKey(addr [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", userIndexPrefix, addr))
}

func reserveKey(asset [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%x", reservePrefix, asset))
}

// storedEscrow is the RLP form of Escrow. Amounts are persisted as big
// integers and range-checked on load.
type storedEscrow struct {
	ID                    uint64
	Depositor             [20]byte
	Beneficiary           [20]byte
	Arbiters              [][20]byte
	RequiredConfirmations uint64
	Asset                 [20]byte
	TotalAmount           *big.Int
	PaidAmount            *big.Int
	PlatformFee           *big.Int
	DisputeRefunded       *big.Int
	Deadline              uint64
	CreatedAt             uint64
	MilestoneCount        uint64
	OpenJob               bool
	WorkStarted           bool
	Title                 string
	Description           string
	Status                uint8
}

func newStoredEscrow(e *Escrow) *storedEscrow {
	return &storedEscrow{
		ID:                    e.ID,
		Depositor:             e.Depositor,
		Beneficiary:           e.Beneficiary,
		Arbiters:              append([][20]byte(nil), e.Arbiters...),
		RequiredConfirmations: e.RequiredConfirmations,
		Asset:                 e.Asset,
		TotalAmount:           common.ToBig(e.TotalAmount),
		PaidAmount:            common.ToBig(e.PaidAmount),
		PlatformFee:           common.ToBig(e.PlatformFee),
		DisputeRefunded:       common.ToBig(e.DisputeRefunded),
		Deadline:              e.Deadline,
		CreatedAt:             e.CreatedAt,
		MilestoneCount:        e.MilestoneCount,
		OpenJob:               e.OpenJob,
		WorkStarted:           e.WorkStarted,
		Title:                 e.Title,
		Description:           e.Description,
		Status:                uint8(e.Status),
	}
}

func (s *storedEscrow) toEscrow() (*Escrow, error) {
	total, err := common.FromBig(s.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("escrow %d: total: %w", s.ID, err)
	}
	paid, err := common.FromBig(s.PaidAmount)
	if err != nil {
		return nil, fmt.Errorf("escrow %d: paid: %w", s.ID, err)
	}
	fee, err := common.FromBig(s.PlatformFee)
	if err != nil {
		return nil, fmt.Errorf("escrow %d: fee: %w", s.ID, err)
	}
	refunded, err := common.FromBig(s.DisputeRefunded)
	if err != nil {
		return nil, fmt.Errorf("escrow %d: dispute refunds: %w", s.ID, err)
	}
	status := EscrowStatus(s.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("escrow %d: unknown status %d", s.ID, s.Status)
	}
	return &Escrow{
		ID:                    s.ID,
		Depositor:             s.Depositor,
		Beneficiary:           s.Beneficiary,
		Arbiters:              s.Arbiters,
		RequiredConfirmations: s.RequiredConfirmations,
		Asset:                 s.Asset,
		TotalAmount:           total,
		PaidAmount:            paid,
		PlatformFee:           fee,
		DisputeRefunded:       refunded,
		Deadline:              s.Deadline,
		CreatedAt:             s.CreatedAt,
		MilestoneCount:        s.MilestoneCount,
		OpenJob:               s.OpenJob,
		WorkStarted:           s.WorkStarted,
		Title:                 s.Title,
		Description:           s.Description,
		Status:                status,
	}, nil
}

type storedMilestone struct {
	EscrowID      uint64
	Index         uint64
	Description   string
	Amount        *big.Int
	Status        uint8
	SubmittedAt   uint64
	ApprovedAt    uint64
	DisputedAt    uint64
	DisputedBy    [20]byte
	DisputeReason string
}

func newStoredMilestone(m *Milestone) *storedMilestone {
	return &storedMilestone{
		EscrowID:      m.EscrowID,
		Index:         m.Index,
		Description:   m.Description,
		Amount:        common.ToBig(m.Amount),
		Status:        uint8(m.Status),
		SubmittedAt:   m.SubmittedAt,
		ApprovedAt:    m.ApprovedAt,
		DisputedAt:    m.DisputedAt,
		DisputedBy:    m.DisputedBy,
		DisputeReason: m.DisputeReason,
	}
}

func (s *storedMilestone) toMilestone() (*Milestone, error) {
	amount, err := common.FromBig(s.Amount)
	if err != nil {
		return nil, fmt.Errorf("milestone %d/%d: amount: %w", s.EscrowID, s.Index, err)
	}
	return &Milestone{
		EscrowID:      s.EscrowID,
		Index:         s.Index,
		Description:   s.Description,
		Amount:        amount,
		Status:        MilestoneStatus(s.Status),
		SubmittedAt:   s.SubmittedAt,
		ApprovedAt:    s.ApprovedAt,
		DisputedAt:    s.DisputedAt,
		DisputedBy:    s.DisputedBy,
		DisputeReason: s.DisputeReason,
	}, nil
}

func (e *Engine) loadConfig() (*AdminConfig, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg := new(AdminConfig)
	ok, err := e.state.KVGet(configKey, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &AdminConfig{}, nil
	}
	return cfg, nil
}

func (e *Engine) storeConfig(cfg *AdminConfig) error {
	return e.state.KVPut(configKey, cfg)
}

func (e *Engine) peekNextID() (uint64, error) {
	var next uint64
	ok, err := e.state.KVGet(nextIDKey, &next)
	if err != nil {
		return 0, err
	}
	if !ok || next == 0 {
		return 1, nil
	}
	return next, nil
}

func (e *Engine) allocateID() (uint64, error) {
	id, err := e.peekNextID()
	if err != nil {
		return 0, err
	}
	if id == ^uint64(0) {
		return 0, fmt.Errorf("%w: escrow id space exhausted", ErrAmountOverflow)
	}
	if err := e.state.KVPut(nextIDKey, id+1); err != nil {
		return 0, err
	}
	return id, nil
}

func (e *Engine) loadEscrow(id uint64) (*Escrow, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	var stored storedEscrow
	ok, err := e.state.KVGet(recordKey(id), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorf(ErrEscrowNotFound, "id %d", id)
	}
	return stored.toEscrow()
}

func (e *Engine) storeEscrow(esc *Escrow) error {
	return e.state.KVPut(recordKey(esc.ID), newStoredEscrow(esc))
}

func (e *Engine) loadMilestone(esc *Escrow, index uint64) (*Milestone, error) {
	if index >= esc.MilestoneCount {
		return nil, errorf(ErrMilestoneNotFound, "escrow %d index %d", esc.ID, index)
	}
	var stored storedMilestone
	ok, err := e.state.KVGet(milestoneKey(esc.ID, index), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorf(ErrMilestoneNotFound, "escrow %d index %d", esc.ID, index)
	}
	return stored.toMilestone()
}

func (e *Engine) storeMilestone(m *Milestone) error {
	return e.state.KVPut(milestoneKey(m.EscrowID, m.Index), newStoredMilestone(m))
}

func (e *Engine) loadApplications(id uint64) ([]Application, error) {
	var apps []Application
	if err := e.state.KVGetList(applicationsKey(id), &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (e *Engine) hasApplied(id uint64, addr [20]byte) (bool, error) {
	var applied bool
	if _, err := e.state.KVGet(appliedKey(id, addr), &applied); err != nil {
		return false, err
	}
	return applied, nil
}

func (e *Engine) indexUser(addr [20]byte, id uint64) error {
	if addr == ([20]byte{}) {
		return nil
	}
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], id)
	return e.state.KVAppend(userIndexKey(addr), raw[:])
}

func (e *Engine) userEscrows(addr [20]byte) ([]uint64, error) {
	var raw [][]byte
	if err := e.state.KVGetList(userIndexKey(addr), &raw); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 8 {
			return nil, fmt.Errorf("escrow: corrupt user index entry")
		}
		ids = append(ids, binary.BigEndian.Uint64(entry))
	}
	return ids, nil
}

func (e *Engine) reserve(asset [20]byte) (*uint256.Int, error) {
	var stored big.Int
	ok, err := e.state.KVGet(reserveKey(asset), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return common.Zero(), nil
	}
	return common.FromBig(&stored)
}

func (e *Engine) increaseReserve(asset [20]byte, amount *uint256.Int) error {
	current, err := e.reserve(asset)
	if err != nil {
		return err
	}
	next, err := common.Add(current, amount)
	if err != nil {
		return err
	}
	return e.state.KVPut(reserveKey(asset), common.ToBig(next))
}

func (e *Engine) decreaseReserve(asset [20]byte, amount *uint256.Int) error {
	current, err := e.reserve(asset)
	if err != nil {
		return err
	}
	next, err := common.Sub(current, amount)
	if err != nil {
		return errorf(ErrReserveUnderflow, "reserve %s, releasing %s", current, amount)
	}
	return e.state.KVPut(reserveKey(asset), common.ToBig(next))
}
