package casework

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InfringementStatus is the lifecycle status of an infringement notice
type InfringementStatus string

const (
	InfringementDraft         InfringementStatus = "Draft"
	InfringementIssued        InfringementStatus = "Issued"
	InfringementPendingReview InfringementStatus = "PendingReview"
	InfringementApproved      InfringementStatus = "Approved"
	InfringementRejected      InfringementStatus = "Rejected"
)

var infringementTable = NewTransitionTable(EntityInfringement,
	Row[InfringementStatus]{From: []InfringementStatus{InfringementDraft, InfringementIssued}, On: TransitionUpdate, Stay: true},
	Row[InfringementStatus]{From: []InfringementStatus{InfringementDraft}, On: TransitionIssue, To: InfringementIssued},
	Row[InfringementStatus]{From: []InfringementStatus{InfringementIssued}, On: TransitionSubmitForReview, To: InfringementPendingReview},
	Row[InfringementStatus]{From: []InfringementStatus{InfringementPendingReview}, On: TransitionApprove, To: InfringementApproved},
	Row[InfringementStatus]{From: []InfringementStatus{InfringementPendingReview}, On: TransitionReject, To: InfringementRejected},
	Row[InfringementStatus]{From: []InfringementStatus{InfringementApproved}, On: TransitionRecordPayment, Stay: true},
)

// NewInfringementRequest is the payload for recording a new infringement
type NewInfringementRequest struct {
	RegistrationRef     uuid.UUID          `json:"registrationRef"`
	LocationDescription string             `json:"locationDescription"`
	InfringementItems   []InfringementItem `json:"infringementItems"`
	OfficerNotes        string             `json:"officerNotes,omitempty"`
}

// Infringement is a penalty notice raised against a registered craft.
// The creating officer is the issuer.
type Infringement struct {
	shared.BaseAggregateRoot
	audit
	RegistrationRef      uuid.UUID             `json:"registrationRef"`
	RegistrationData     *RegistrationSnapshot `json:"registrationData,omitempty"`
	IssuedByRef          uuid.UUID             `json:"issuedByRef"`
	IssuedByData         *PersonSnapshot       `json:"issuedByData,omitempty"`
	IssuedAt             *time.Time            `json:"issuedAt,omitempty"`
	LocationDescription  string                `json:"locationDescription"`
	InfringementItems    []InfringementItem    `json:"infringementItems"`
	TotalPoints          int                   `json:"totalPoints"`
	FineTier             string                `json:"fineTier"`
	FineAmount           *decimal.Decimal      `json:"fineAmount,omitempty"`
	Status               InfringementStatus    `json:"status"`
	OfficerNotes         string                `json:"officerNotes,omitempty"`
	OffenderSignatureURL string                `json:"offenderSignatureUrl,omitempty"`
	ReviewedAt           *time.Time            `json:"reviewedAt,omitempty"`
	ReviewedByRef        *uuid.UUID            `json:"reviewedByRef,omitempty"`
	RejectionReason      string                `json:"rejectionReason,omitempty"`
	PaymentReference     string                `json:"paymentReference,omitempty"`
	PaidAt               *time.Time            `json:"paidAt,omitempty"`
}

// NewInfringement creates a Draft infringement issued by createdBy
func NewInfringement(d NewInfringementRequest, createdBy uuid.UUID, now time.Time) (*Infringement, error) {
	var m missing
	m.require(d.RegistrationRef != uuid.Nil, "registrationRef")
	m.require(createdBy != uuid.Nil, "issuedByRef")
	m.points(d.InfringementItems)
	if err := m.err(); err != nil {
		return nil, err
	}
	items := d.InfringementItems
	if items == nil {
		items = []InfringementItem{}
	}
	f := &Infringement{
		BaseAggregateRoot:   shared.NewBaseAggregateRootAt(now),
		audit:               newAudit(createdBy),
		RegistrationRef:     d.RegistrationRef,
		IssuedByRef:         createdBy,
		LocationDescription: d.LocationDescription,
		InfringementItems:   items,
		OfficerNotes:        d.OfficerNotes,
		Status:              InfringementDraft,
	}
	f.recompute()
	f.AddDomainEvent(NewCaseCreatedEvent(EntityInfringement, f.ID, string(f.Status), createdBy, now))
	return f, nil
}

// Entity implements Case
func (f *Infringement) Entity() EntityType { return EntityInfringement }

// CurrentStatus implements Case
func (f *Infringement) CurrentStatus() string { return string(f.Status) }

// AvailableTransitions implements Case
func (f *Infringement) AvailableTransitions() []Transition {
	return infringementTable.Available(f.Status)
}

// AttachRegistration caches the registration snapshot
func (f *Infringement) AttachRegistration(s RegistrationSnapshot) {
	f.RegistrationData = &s
}

// AttachIssuer caches the issuing officer's snapshot
func (f *Infringement) AttachIssuer(s PersonSnapshot) {
	f.IssuedByData = &s
}

// recompute derives totalPoints, fineTier and fineAmount from the items
func (f *Infringement) recompute() {
	f.TotalPoints = TotalPoints(f.InfringementItems)
	f.FineTier = FineTier(f.TotalPoints)
	if amount, ok := FineAmount(f.TotalPoints); ok {
		f.FineAmount = &amount
	} else {
		f.FineAmount = nil
	}
}

// points flags every item carrying negative points
func (m *missing) points(items []InfringementItem) {
	for i, item := range items {
		m.require(item.Points >= 0, fmt.Sprintf("infringementItems[%d].points", i))
	}
}

func hasSelected(items []InfringementItem) bool {
	for _, item := range items {
		if item.Selected {
			return true
		}
	}
	return false
}

// Apply implements Case
func (f *Infringement) Apply(tr Transition, in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := infringementTable.Next(f.Status, tr)
	if err != nil {
		return err
	}

	switch tr {
	case TransitionUpdate:
		// an issued notice keeps at least one selected item
		if err := f.update(in, f.Status == InfringementIssued); err != nil {
			return err
		}
	case TransitionIssue:
		if err := f.update(in, true); err != nil {
			return err
		}
		f.IssuedAt = timePtr(now)
	case TransitionApprove, TransitionReject:
		f.ReviewedAt = timePtr(now)
		f.ReviewedByRef = uuidPtr(actor)
		if tr == TransitionReject {
			f.RejectionReason = str(in.Reason)
		}
	case TransitionRecordPayment:
		ref := str(in.PaymentReference)
		if ref == "" {
			return shared.NewValidationError("paymentReference")
		}
		f.PaymentReference = ref
		f.PaidAt = timePtr(now)
		if in.PaidAt != nil {
			f.PaidAt = timePtr(*in.PaidAt)
		}
	}

	from := f.Status
	f.Status = to
	stamp(&f.BaseAggregateRoot, &f.audit, EntityInfringement, tr, string(from), string(to), actor, now)
	return nil
}

// update applies editable fields and recomputes the derived totals.
// Nothing is changed when the supplied items are invalid.
func (f *Infringement) update(in TransitionInput, needSelected bool) error {
	items := f.InfringementItems
	if in.InfringementItems != nil {
		items = in.InfringementItems
	}
	var m missing
	m.points(items)
	if err := m.err(); err != nil {
		return err
	}
	if needSelected && !hasSelected(items) {
		return shared.NewValidationError("infringementItems")
	}
	f.InfringementItems = items
	f.LocationDescription = strOr(in.LocationDescription, f.LocationDescription)
	f.OfficerNotes = strOr(in.OfficerNotes, f.OfficerNotes)
	f.OffenderSignatureURL = strOr(in.OffenderSignatureURL, f.OffenderSignatureURL)
	f.recompute()
	return nil
}
