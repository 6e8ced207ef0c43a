package escrow

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"secureflow/core/types"
)

const (
	EventTypeEscrowCreated          = "escrow.created"
	EventTypeWorkStarted            = "escrow.work_started"
	EventTypeMilestoneSubmitted     = "escrow.milestone.submitted"
	EventTypeMilestoneApproved      = "escrow.milestone.approved"
	EventTypeMilestoneRejected      = "escrow.milestone.rejected"
	EventTypeMilestoneResubmitted   = "escrow.milestone.resubmitted"
	EventTypeMilestoneDisputed      = "escrow.milestone.disputed"
	EventTypeDisputeResolved        = "escrow.dispute.resolved"
	EventTypeEscrowReleased         = "escrow.released"
	EventTypeEscrowRefunded         = "escrow.refunded"
	EventTypeEscrowExpired          = "escrow.expired"
	EventTypeDeadlineExtended       = "escrow.deadline_extended"
	EventTypeJobApplied             = "escrow.job.applied"
	EventTypeJobAccepted            = "escrow.job.accepted"
	EventTypeFeesWithdrawn          = "escrow.fees.withdrawn"
	EventTypeAdminPrefix            = "escrow.admin."
	EventTypeAdminInitialized       = EventTypeAdminPrefix + "initialized"
	EventTypeAdminPaused            = EventTypeAdminPrefix + "paused"
	EventTypeAdminUnpaused          = EventTypeAdminPrefix + "unpaused"
	EventTypeAdminJobsPaused        = EventTypeAdminPrefix + "jobs_paused"
	EventTypeAdminJobsUnpaused      = EventTypeAdminPrefix + "jobs_unpaused"
	EventTypeAdminAssetWhitelisted  = EventTypeAdminPrefix + "asset_whitelisted"
	EventTypeAdminAssetBlacklisted  = EventTypeAdminPrefix + "asset_blacklisted"
	EventTypeAdminArbiterAdded      = EventTypeAdminPrefix + "arbiter_authorized"
	EventTypeAdminArbiterRevoked    = EventTypeAdminPrefix + "arbiter_revoked"
	EventTypeAdminFeeUpdated        = EventTypeAdminPrefix + "fee_updated"
	EventTypeAdminCollectorUpdated  = EventTypeAdminPrefix + "collector_updated"
	EventTypeAdminEmergencyWithdraw = EventTypeAdminPrefix + "emergency_withdraw"
)

func hexAddr(addr [20]byte) string { return hex.EncodeToString(addr[:]) }

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// NewCreatedEvent returns the canonical event payload for a newly created
// escrow.
func NewCreatedEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeEscrowCreated, e) }

// NewWorkStartedEvent is emitted when the beneficiary accepts the work.
func NewWorkStartedEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeWorkStarted, e) }

// NewReleasedEvent is emitted once every milestone has been paid.
func NewReleasedEvent(e *Escrow) *types.Event { return newEscrowEvent(EventTypeEscrowReleased, e) }

// NewRefundedEvent reports a refund of the outstanding balance to the
// depositor. The refund includes any fee that never accrued.
func NewRefundedEvent(e *Escrow, refunded *uint256.Int) *types.Event {
	evt := newEscrowEvent(EventTypeEscrowRefunded, e)
	evt.Attributes["refunded"] = amountString(refunded)
	return evt
}

// NewExpiredEvent reports an emergency refund after the grace period.
func NewExpiredEvent(e *Escrow, refunded *uint256.Int) *types.Event {
	evt := newEscrowEvent(EventTypeEscrowExpired, e)
	evt.Attributes["refunded"] = amountString(refunded)
	return evt
}

func NewDeadlineExtendedEvent(e *Escrow, extra uint64) *types.Event {
	evt := newEscrowEvent(EventTypeDeadlineExtended, e)
	evt.Attributes["extension"] = strconv.FormatUint(extra, 10)
	return evt
}

func NewMilestoneEvent(eventType string, e *Escrow, m *Milestone, actor [20]byte) *types.Event {
	attrs := map[string]string{}
	if e != nil {
		attrs["id"] = strconv.FormatUint(e.ID, 10)
		attrs["escrowStatus"] = e.Status.String()
	}
	if m != nil {
		attrs["index"] = strconv.FormatUint(m.Index, 10)
		attrs["amount"] = amountString(m.Amount)
		attrs["status"] = m.Status.String()
		if strings.TrimSpace(m.DisputeReason) != "" && (m.Status == MilestoneRejected || m.Status == MilestoneDisputed) {
			attrs["reason"] = m.DisputeReason
		}
	}
	attrs["actor"] = hexAddr(actor)
	return &types.Event{Type: eventType, Attributes: attrs}
}

// NewDisputeResolvedEvent reports how a disputed milestone was split.
func NewDisputeResolvedEvent(e *Escrow, m *Milestone, resolver [20]byte, toBeneficiary, toDepositor *uint256.Int) *types.Event {
	evt := NewMilestoneEvent(EventTypeDisputeResolved, e, m, resolver)
	evt.Attributes["beneficiaryAmount"] = amountString(toBeneficiary)
	evt.Attributes["refundAmount"] = amountString(toDepositor)
	return evt
}

func NewJobAppliedEvent(e *Escrow, app *Application, count int) *types.Event {
	attrs := map[string]string{
		"id":           strconv.FormatUint(e.ID, 10),
		"freelancer":   hexAddr(app.Freelancer),
		"timeline":     strconv.FormatUint(app.ProposedTimeline, 10),
		"applications": strconv.Itoa(count),
	}
	return &types.Event{Type: EventTypeJobApplied, Attributes: attrs}
}

func NewJobAcceptedEvent(e *Escrow) *types.Event {
	return newEscrowEvent(EventTypeJobAccepted, e)
}

func NewFeesWithdrawnEvent(asset, recipient [20]byte, amount *uint256.Int) *types.Event {
	return &types.Event{Type: EventTypeFeesWithdrawn, Attributes: map[string]string{
		"asset":     hexAddr(asset),
		"recipient": hexAddr(recipient),
		"amount":    amountString(amount),
	}}
}

// NewAdminEvent returns an administrative event with the supplied attributes.
func NewAdminEvent(eventType string, actor [20]byte, attrs map[string]string) *types.Event {
	out := map[string]string{"actor": hexAddr(actor)}
	for k, v := range attrs {
		out[k] = v
	}
	return &types.Event{Type: eventType, Attributes: out}
}

func newEscrowEvent(eventType string, e *Escrow) *types.Event {
	attrs := make(map[string]string)
	if e == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = strconv.FormatUint(e.ID, 10)
	attrs["depositor"] = hexAddr(e.Depositor)
	if e.Beneficiary != ([20]byte{}) {
		attrs["beneficiary"] = hexAddr(e.Beneficiary)
	}
	attrs["asset"] = hexAddr(e.Asset)
	attrs["total"] = amountString(e.TotalAmount)
	attrs["paid"] = amountString(e.PaidAmount)
	attrs["fee"] = amountString(e.PlatformFee)
	if e.DisputeRefunded != nil && !e.DisputeRefunded.IsZero() {
		attrs["disputeRefunded"] = amountString(e.DisputeRefunded)
	}
	attrs["status"] = e.Status.String()
	attrs["deadline"] = strconv.FormatUint(e.Deadline, 10)
	attrs["createdAt"] = strconv.FormatUint(e.CreatedAt, 10)
	if e.OpenJob {
		attrs["openJob"] = "true"
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
