package main

import (
	"encoding/hex"

	"github.com/holiman/uint256"

	"secureflow/core/ledger"
	"secureflow/crypto"
	"secureflow/native/escrow"
)

type eventView struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

type receiptView struct {
	OpID   string      `json:"opId"`
	Seq    uint64      `json:"seq"`
	Digest string      `json:"digest"`
	Time   uint64      `json:"time"`
	Events []eventView `json:"events"`
	Result interface{} `json:"result,omitempty"`
}

func newReceiptView(r *ledger.Receipt, result interface{}) receiptView {
	view := receiptView{
		OpID:   r.OpID,
		Seq:    r.Seq,
		Digest: hex.EncodeToString(r.Digest[:]),
		Time:   r.Time,
		Events: make([]eventView, 0, len(r.Events)),
		Result: result,
	}
	for _, evt := range r.Events {
		view.Events = append(view.Events, eventView{Type: evt.Type, Attributes: evt.Attributes})
	}
	return view
}

type escrowView struct {
	ID                    uint64   `json:"id"`
	Depositor             string   `json:"depositor"`
	Beneficiary           string   `json:"beneficiary,omitempty"`
	Arbiters              []string `json:"arbiters"`
	RequiredConfirmations uint64   `json:"requiredConfirmations"`
	Asset                 string   `json:"asset"`
	Status                string   `json:"status"`
	Total                 string   `json:"total"`
	Paid                  string   `json:"paid"`
	Remaining             string   `json:"remaining"`
	DisputeRefunded       string   `json:"disputeRefunded"`
	PlatformFee           string   `json:"platformFee"`
	Deadline              uint64   `json:"deadline"`
	CreatedAt             uint64   `json:"createdAt"`
	WorkStarted           bool     `json:"workStarted"`
	Milestones            uint64   `json:"milestones"`
	OpenJob               bool     `json:"openJob"`
	Title                 string   `json:"title"`
	Description           string   `json:"description,omitempty"`
}

func newEscrowView(s *escrow.Summary) escrowView {
	return escrowView{
		ID:                    s.ID,
		Depositor:             crypto.FormatAccount(s.Depositor),
		Beneficiary:           crypto.FormatAccount(s.Beneficiary),
		Arbiters:              formatAccounts(s.Arbiters),
		RequiredConfirmations: s.RequiredConfirmations,
		Asset:                 crypto.FormatAsset(s.Asset),
		Status:                s.Status.String(),
		Total:                 decimal(s.TotalAmount),
		Paid:                  decimal(s.PaidAmount),
		Remaining:             decimal(s.RemainingAmount),
		DisputeRefunded:       decimal(s.DisputeRefunded),
		PlatformFee:           decimal(s.PlatformFee),
		Deadline:              s.Deadline,
		CreatedAt:             s.CreatedAt,
		WorkStarted:           s.WorkStarted,
		Milestones:            s.MilestoneCount,
		OpenJob:               s.OpenJob,
		Title:                 s.Title,
		Description:           s.Description,
	}
}

type milestoneView struct {
	Index         uint64 `json:"index"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	SubmittedAt   uint64 `json:"submittedAt,omitempty"`
	ApprovedAt    uint64 `json:"approvedAt,omitempty"`
	DisputedAt    uint64 `json:"disputedAt,omitempty"`
	DisputedBy    string `json:"disputedBy,omitempty"`
	DisputeReason string `json:"disputeReason,omitempty"`
}

func newMilestoneView(m *escrow.Milestone) milestoneView {
	return milestoneView{
		Index:         m.Index,
		Description:   m.Description,
		Amount:        decimal(m.Amount),
		Status:        m.Status.String(),
		SubmittedAt:   m.SubmittedAt,
		ApprovedAt:    m.ApprovedAt,
		DisputedAt:    m.DisputedAt,
		DisputedBy:    crypto.FormatAccount(m.DisputedBy),
		DisputeReason: m.DisputeReason,
	}
}

type applicationView struct {
	Freelancer       string `json:"freelancer"`
	CoverLetter      string `json:"coverLetter"`
	ProposedTimeline uint64 `json:"proposedTimeline"`
	AppliedAt        uint64 `json:"appliedAt"`
}

type configView struct {
	Initialized       bool     `json:"initialized"`
	Owner             string   `json:"owner"`
	FeeCollector      string   `json:"feeCollector"`
	FeeBps            uint32   `json:"feeBps"`
	Paused            bool     `json:"paused"`
	JobCreationPaused bool     `json:"jobCreationPaused"`
	Assets            []string `json:"assets"`
	Arbiters          []string `json:"arbiters"`
}

func newConfigView(c *escrow.AdminConfig) configView {
	assets := make([]string, 0, len(c.Assets))
	for _, asset := range c.Assets {
		assets = append(assets, crypto.FormatAsset(asset))
	}
	return configView{
		Initialized:       c.Initialized,
		Owner:             crypto.FormatAccount(c.Owner),
		FeeCollector:      crypto.FormatAccount(c.FeeCollector),
		FeeBps:            c.FeeBps,
		Paused:            c.Paused,
		JobCreationPaused: c.JobCreationPaused,
		Assets:            assets,
		Arbiters:          formatAccounts(c.Arbiters),
	}
}

func formatAccounts(addrs [][20]byte) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, crypto.FormatAccount(addr))
	}
	return out
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
