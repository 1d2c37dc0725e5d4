package casework

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
)

// RegistrationStatus is the lifecycle status of a craft registration
type RegistrationStatus string

const (
	RegistrationDraft         RegistrationStatus = "Draft"
	RegistrationSubmitted     RegistrationStatus = "Submitted"
	RegistrationPendingReview RegistrationStatus = "PendingReview"
	RegistrationRequiresInfo  RegistrationStatus = "RequiresInfo"
	RegistrationApproved      RegistrationStatus = "Approved"
	RegistrationRejected      RegistrationStatus = "Rejected"
	RegistrationExpired       RegistrationStatus = "Expired"
	RegistrationSuspended     RegistrationStatus = "Suspended"
	RegistrationRevoked       RegistrationStatus = "Revoked"
)

// RegistrationType distinguishes first registrations from renewals
type RegistrationType string

const (
	RegistrationNew     RegistrationType = "New"
	RegistrationRenewal RegistrationType = "Renewal"
)

// MaxOwners is the most owners a registration may list
const MaxOwners = 5

var reviewable = []RegistrationStatus{RegistrationDraft, RegistrationSubmitted, RegistrationPendingReview, RegistrationRequiresInfo}

var registrationTable = NewTransitionTable(EntityRegistration,
	Row[RegistrationStatus]{From: []RegistrationStatus{RegistrationDraft, RegistrationRequiresInfo}, On: TransitionUpdate, Stay: true},
	Row[RegistrationStatus]{From: []RegistrationStatus{RegistrationDraft, RegistrationRequiresInfo}, On: TransitionSubmit, To: RegistrationSubmitted},
	Row[RegistrationStatus]{From: []RegistrationStatus{RegistrationSubmitted}, On: TransitionBeginReview, To: RegistrationPendingReview},
	Row[RegistrationStatus]{From: reviewable, On: TransitionApprove, To: RegistrationApproved},
	Row[RegistrationStatus]{From: reviewable, On: TransitionReject, To: RegistrationRejected},
	Row[RegistrationStatus]{From: reviewable, On: TransitionRequestInfo, To: RegistrationRequiresInfo},
	Row[RegistrationStatus]{From: []RegistrationStatus{RegistrationApproved, RegistrationExpired, RegistrationSuspended}, On: TransitionSuspend, To: RegistrationSuspended},
	Row[RegistrationStatus]{From: []RegistrationStatus{RegistrationSuspended}, On: TransitionUnsuspend, To: RegistrationApproved},
	Row[RegistrationStatus]{From: []RegistrationStatus{RegistrationApproved, RegistrationExpired, RegistrationSuspended}, On: TransitionRevoke, To: RegistrationRevoked},
	Row[RegistrationStatus]{From: []RegistrationStatus{RegistrationApproved}, On: TransitionExpire, To: RegistrationExpired},
)

// Owner is a registered owner of a craft
type Owner struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	LLG     string `json:"llg,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Craft describes the registered vessel
type Craft struct {
	Make          string  `json:"make"`
	Model         string  `json:"model"`
	HullID        string  `json:"hullId"`
	LengthMeters  float64 `json:"lengthMeters"`
	HullMaterial  string  `json:"hullMaterial,omitempty"`
	EngineMake    string  `json:"engineMake,omitempty"`
	EnginePowerHP int     `json:"enginePowerHp,omitempty"`
	Color         string  `json:"color,omitempty"`
}

// NewRegistrationRequest is the payload for creating a registration
type NewRegistrationRequest struct {
	RegistrationType  RegistrationType `json:"registrationType"`
	PreviousScaRegoNo string           `json:"previousScaRegoNo,omitempty"`
	Owners            []Owner          `json:"owners"`
	Craft             Craft            `json:"craft"`
}

// Registration is a small-craft registration case
type Registration struct {
	shared.BaseAggregateRoot
	audit
	RegistrationType    RegistrationType   `json:"registrationType"`
	Status              RegistrationStatus `json:"status"`
	ScaRegoNo           string             `json:"scaRegoNo,omitempty"`
	PreviousScaRegoNo   string             `json:"previousScaRegoNo,omitempty"`
	Owners              []Owner            `json:"owners"`
	Craft               Craft              `json:"craft"`
	EffectiveDate       *Date              `json:"effectiveDate,omitempty"`
	ExpiryDate          *Date              `json:"expiryDate,omitempty"`
	SuspensionReason    string             `json:"suspensionReason,omitempty"`
	SuspensionStartDate *Date              `json:"suspensionStartDate,omitempty"`
	SuspensionEndDate   *Date              `json:"suspensionEndDate,omitempty"`
	RevocationReason    string             `json:"revocationReason,omitempty"`
	RevokedAt           *time.Time         `json:"revokedAt,omitempty"`
	RejectionReason     string             `json:"rejectionReason,omitempty"`
	InfoRequest         string             `json:"infoRequest,omitempty"`
	ApprovedAt          *time.Time         `json:"approvedAt,omitempty"`
	ReviewedByRef       *uuid.UUID         `json:"reviewedByRef,omitempty"`
}

// NewRegistration creates a Draft registration
func NewRegistration(d NewRegistrationRequest, createdBy uuid.UUID, now time.Time) (*Registration, error) {
	var m missing
	m.require(d.RegistrationType == RegistrationNew || d.RegistrationType == RegistrationRenewal, "registrationType")
	m.require(d.RegistrationType != RegistrationRenewal || strings.TrimSpace(d.PreviousScaRegoNo) != "", "previousScaRegoNo")
	m = append(m, validateOwners(d.Owners)...)
	if err := m.err(); err != nil {
		return nil, err
	}

	r := &Registration{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		audit:             newAudit(createdBy),
		RegistrationType:  d.RegistrationType,
		Status:            RegistrationDraft,
		PreviousScaRegoNo: strings.TrimSpace(d.PreviousScaRegoNo),
		Owners:            d.Owners,
		Craft:             d.Craft,
	}
	r.AddDomainEvent(NewCaseCreatedEvent(EntityRegistration, r.ID, string(r.Status), createdBy, now))
	return r, nil
}

func validateOwners(owners []Owner) missing {
	var m missing
	if len(owners) < 1 || len(owners) > MaxOwners {
		m = append(m, "owners")
	}
	for i, o := range owners {
		m.require(strings.TrimSpace(o.Name) != "", fmt.Sprintf("owners[%d].name", i))
	}
	return m
}

// Entity implements Case
func (r *Registration) Entity() EntityType { return EntityRegistration }

// CurrentStatus implements Case
func (r *Registration) CurrentStatus() string { return string(r.Status) }

// AvailableTransitions implements Case
func (r *Registration) AvailableTransitions() []Transition {
	return registrationTable.Available(r.Status)
}

// Snapshot captures the details dependent cases cache
func (r *Registration) Snapshot(now time.Time) RegistrationSnapshot {
	s := RegistrationSnapshot{
		CraftMake:  r.Craft.Make,
		CraftModel: r.Craft.Model,
		HullID:     r.Craft.HullID,
		ScaRegoNo:  r.ScaRegoNo,
		CapturedAt: now,
	}
	if len(r.Owners) > 0 {
		s.OwnerName = r.Owners[0].Name
	}
	return s
}

// Apply implements Case
func (r *Registration) Apply(tr Transition, in TransitionInput, actor uuid.UUID, now time.Time) error {
	before := r.Snapshot(now)
	var err error
	switch tr {
	case TransitionUpdate:
		err = r.Update(in, actor, now)
	case TransitionSubmit:
		err = r.Submit(actor, now)
	case TransitionBeginReview:
		err = r.BeginReview(actor, now)
	case TransitionApprove:
		err = r.Approve(in, actor, now)
	case TransitionReject:
		err = r.Reject(in, actor, now)
	case TransitionRequestInfo:
		err = r.RequestInfo(in, actor, now)
	case TransitionSuspend:
		err = r.Suspend(in, actor, now)
	case TransitionUnsuspend:
		err = r.Unsuspend(actor, now)
	case TransitionRevoke:
		err = r.Revoke(in, actor, now)
	case TransitionExpire:
		err = r.Expire(actor, now)
	default:
		err = NewIllegalTransitionError(EntityRegistration, string(r.Status), tr)
	}
	if err != nil {
		return err
	}
	if after := r.Snapshot(now); !after.SameDetails(before) {
		r.AddDomainEvent(NewRegistrationDetailsChangedEvent(r.ID, after, now))
	}
	return nil
}

func (r *Registration) move(tr Transition, to RegistrationStatus, actor uuid.UUID, now time.Time) {
	from := r.Status
	r.Status = to
	stamp(&r.BaseAggregateRoot, &r.audit, EntityRegistration, tr, string(from), string(to), actor, now)
}

// Update edits owners and craft details while the application is editable
func (r *Registration) Update(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionUpdate)
	if err != nil {
		return err
	}
	owners := r.Owners
	if in.Owners != nil {
		owners = in.Owners
	}
	if err := validateOwners(owners).err(); err != nil {
		return err
	}
	r.Owners = owners
	if in.Craft != nil {
		r.Craft = *in.Craft
	}
	r.move(TransitionUpdate, to, actor, now)
	return nil
}

// Submit lodges the application for review
func (r *Registration) Submit(actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionSubmit)
	if err != nil {
		return err
	}
	var m missing
	m = append(m, validateOwners(r.Owners)...)
	m.require(strings.TrimSpace(r.Craft.Make) != "", "craft.make")
	m.require(strings.TrimSpace(r.Craft.Model) != "", "craft.model")
	m.require(strings.TrimSpace(r.Craft.HullID) != "", "craft.hullId")
	m.require(r.RegistrationType != RegistrationRenewal || r.PreviousScaRegoNo != "", "previousScaRegoNo")
	if err := m.err(); err != nil {
		return err
	}
	r.InfoRequest = ""
	r.move(TransitionSubmit, to, actor, now)
	return nil
}

// BeginReview picks a submitted application up for review
func (r *Registration) BeginReview(actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionBeginReview)
	if err != nil {
		return err
	}
	r.move(TransitionBeginReview, to, actor, now)
	return nil
}

// Approve issues the registration number and validity period
func (r *Registration) Approve(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionApprove)
	if err != nil {
		return err
	}
	scaRegoNo := strOr(in.ScaRegoNo, r.ScaRegoNo)
	effective := dateOr(in.EffectiveDate, r.EffectiveDate)
	expiry := dateOr(in.ExpiryDate, r.ExpiryDate)

	var m missing
	m.require(scaRegoNo != "", "scaRegoNo")
	m.require(effective != nil, "effectiveDate")
	m.require(expiry != nil, "expiryDate")
	if effective != nil && expiry != nil {
		m.require(effective.Before(*expiry), "expiryDate")
	}
	if err := m.err(); err != nil {
		return err
	}

	r.ScaRegoNo = scaRegoNo
	r.EffectiveDate = effective
	r.ExpiryDate = expiry
	r.ApprovedAt = timePtr(now)
	r.ReviewedByRef = uuidPtr(actor)
	r.InfoRequest = ""
	r.move(TransitionApprove, to, actor, now)
	return nil
}

// Reject closes the application. The reason is optional.
func (r *Registration) Reject(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionReject)
	if err != nil {
		return err
	}
	r.RejectionReason = str(in.Reason)
	r.ReviewedByRef = uuidPtr(actor)
	r.move(TransitionReject, to, actor, now)
	return nil
}

// RequestInfo returns the application to the applicant for more detail
func (r *Registration) RequestInfo(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionRequestInfo)
	if err != nil {
		return err
	}
	r.InfoRequest = strOr(in.Reason, str(in.Notes))
	r.move(TransitionRequestInfo, to, actor, now)
	return nil
}

// Suspend takes an approved registration out of force
func (r *Registration) Suspend(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionSuspend)
	if err != nil {
		return err
	}
	reason := str(in.Reason)
	var m missing
	m.require(reason != "", "reason")
	if in.SuspensionStartDate != nil && in.SuspensionEndDate != nil {
		m.require(!in.SuspensionEndDate.Before(*in.SuspensionStartDate), "suspensionEndDate")
	}
	if err := m.err(); err != nil {
		return err
	}
	r.SuspensionReason = reason
	r.SuspensionStartDate = dateOr(in.SuspensionStartDate, datePtr(DateOf(now)))
	r.SuspensionEndDate = dateOr(in.SuspensionEndDate, nil)
	r.move(TransitionSuspend, to, actor, now)
	return nil
}

// Unsuspend restores a suspended registration and clears the suspension
func (r *Registration) Unsuspend(actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionUnsuspend)
	if err != nil {
		return err
	}
	r.SuspensionReason = ""
	r.SuspensionStartDate = nil
	r.SuspensionEndDate = nil
	r.move(TransitionUnsuspend, to, actor, now)
	return nil
}

// Revoke permanently cancels the registration
func (r *Registration) Revoke(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionRevoke)
	if err != nil {
		return err
	}
	reason := str(in.Reason)
	if reason == "" {
		return shared.NewValidationError("reason")
	}
	r.RevocationReason = reason
	r.RevokedAt = timePtr(now)
	r.move(TransitionRevoke, to, actor, now)
	return nil
}

// Expire marks an approved registration past its expiry date
func (r *Registration) Expire(actor uuid.UUID, now time.Time) error {
	to, err := registrationTable.Next(r.Status, TransitionExpire)
	if err != nil {
		return err
	}
	r.move(TransitionExpire, to, actor, now)
	return nil
}

// IsDueToExpire reports whether an approved registration's expiry date has passed
func (r *Registration) IsDueToExpire(now time.Time) bool {
	return r.Status == RegistrationApproved && r.ExpiryDate != nil && r.ExpiryDate.Before(DateOf(now))
}
