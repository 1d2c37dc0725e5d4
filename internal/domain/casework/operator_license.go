package casework

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
)

// LicenseStatus is the lifecycle status of an operator license application
type LicenseStatus string

const (
	LicenseDraft         LicenseStatus = "Draft"
	LicenseSubmitted     LicenseStatus = "Submitted"
	LicensePendingReview LicenseStatus = "PendingReview"
	LicenseRequiresInfo  LicenseStatus = "RequiresInfo"
	LicenseAwaitingTest  LicenseStatus = "AwaitingTest"
	LicenseTestScheduled LicenseStatus = "TestScheduled"
	LicenseTestPassed    LicenseStatus = "TestPassed"
	LicenseTestFailed    LicenseStatus = "TestFailed"
	LicenseApproved      LicenseStatus = "Approved"
	LicenseRejected      LicenseStatus = "Rejected"
	LicenseExpired       LicenseStatus = "Expired"
	LicenseSuspended     LicenseStatus = "Suspended"
	LicenseRevoked       LicenseStatus = "Revoked"
)

// LicenseApplicationType distinguishes new licenses from renewals
type LicenseApplicationType string

const (
	LicenseNew     LicenseApplicationType = "New"
	LicenseRenewal LicenseApplicationType = "Renewal"
)

// LicenseValidityYears is how long an issued license remains in force
const LicenseValidityYears = 3

var licenseTable = NewTransitionTable(EntityOperatorLicense,
	Row[LicenseStatus]{From: []LicenseStatus{LicenseDraft, LicenseSubmitted}, On: TransitionSubmit, To: LicensePendingReview},
	Row[LicenseStatus]{From: []LicenseStatus{LicensePendingReview}, On: TransitionMarkReadyForTest, To: LicenseAwaitingTest},
	Row[LicenseStatus]{From: []LicenseStatus{LicenseAwaitingTest}, On: TransitionScheduleTest, To: LicenseTestScheduled},
	Row[LicenseStatus]{From: []LicenseStatus{LicenseTestScheduled}, On: TransitionRecordTestPass, To: LicenseTestPassed},
	Row[LicenseStatus]{From: []LicenseStatus{LicenseTestScheduled}, On: TransitionRecordTestFail, To: LicenseTestFailed},
	Row[LicenseStatus]{From: []LicenseStatus{LicensePendingReview, LicenseRequiresInfo}, On: TransitionRequestInfo, To: LicenseRequiresInfo},
	Row[LicenseStatus]{From: []LicenseStatus{LicensePendingReview, LicenseSubmitted, LicenseTestPassed, LicenseRequiresInfo}, On: TransitionApprove, To: LicenseApproved},
	Row[LicenseStatus]{
		From: []LicenseStatus{LicensePendingReview, LicenseSubmitted, LicenseRequiresInfo, LicenseTestFailed, LicenseAwaitingTest, LicenseTestScheduled},
		On:   TransitionReject,
		To:   LicenseRejected,
	},
	Row[LicenseStatus]{From: []LicenseStatus{LicenseApproved, LicenseExpired}, On: TransitionSuspend, To: LicenseSuspended},
	Row[LicenseStatus]{From: []LicenseStatus{LicenseSuspended}, On: TransitionUnsuspend, To: LicenseApproved},
	Row[LicenseStatus]{From: []LicenseStatus{LicenseApproved, LicenseExpired, LicenseSuspended}, On: TransitionRevoke, To: LicenseRevoked},
	Row[LicenseStatus]{From: []LicenseStatus{LicenseApproved}, On: TransitionExpire, To: LicenseExpired},
)

// AttachedDocument references an uploaded supporting document in object storage
type AttachedDocument struct {
	Name        string `json:"name"`
	ObjectKey   string `json:"objectKey"`
	ContentType string `json:"contentType,omitempty"`
}

// NewOperatorLicenseRequest is the payload for creating a license application
type NewOperatorLicenseRequest struct {
	OperatorRef           uuid.UUID              `json:"operatorRef"`
	OperatorName          string                 `json:"operatorName"`
	ApplicationType       LicenseApplicationType `json:"applicationType"`
	PreviousLicenseNumber string                 `json:"previousLicenseNumber,omitempty"`
	AttachedDocuments     []AttachedDocument     `json:"attachedDocuments,omitempty"`
}

// OperatorLicense is an application for, and the life of, a craft operator license
type OperatorLicense struct {
	shared.BaseAggregateRoot
	audit
	OperatorRef           uuid.UUID              `json:"operatorRef"`
	OperatorName          string                 `json:"operatorName"`
	ApplicationType       LicenseApplicationType `json:"applicationType"`
	PreviousLicenseNumber string                 `json:"previousLicenseNumber,omitempty"`
	Status                LicenseStatus          `json:"status"`
	AssignedLicenseNumber string                 `json:"assignedLicenseNumber,omitempty"`
	ApprovedAt            *time.Time             `json:"approvedAt,omitempty"`
	IssuedAt              *time.Time             `json:"issuedAt,omitempty"`
	ExpiryDate            *Date                  `json:"expiryDate,omitempty"`
	TestDate              *Date                  `json:"testDate,omitempty"`
	TestNotes             string                 `json:"testNotes,omitempty"`
	SuspensionReason      string                 `json:"suspensionReason,omitempty"`
	RevocationReason      string                 `json:"revocationReason,omitempty"`
	RejectionReason       string                 `json:"rejectionReason,omitempty"`
	InfoRequest           string                 `json:"infoRequest,omitempty"`
	AttachedDocuments     []AttachedDocument     `json:"attachedDocuments"`
	ReviewedByRef         *uuid.UUID             `json:"reviewedByRef,omitempty"`
}

// NewOperatorLicense creates a Draft license application
func NewOperatorLicense(d NewOperatorLicenseRequest, createdBy uuid.UUID, now time.Time) (*OperatorLicense, error) {
	var m missing
	m.require(d.OperatorRef != uuid.Nil, "operatorRef")
	m.require(strings.TrimSpace(d.OperatorName) != "", "operatorName")
	m.require(d.ApplicationType == LicenseNew || d.ApplicationType == LicenseRenewal, "applicationType")
	m.require(d.ApplicationType != LicenseRenewal || strings.TrimSpace(d.PreviousLicenseNumber) != "", "previousLicenseNumber")
	if err := m.err(); err != nil {
		return nil, err
	}
	docs := d.AttachedDocuments
	if docs == nil {
		docs = []AttachedDocument{}
	}
	l := &OperatorLicense{
		BaseAggregateRoot:     shared.NewBaseAggregateRootAt(now),
		audit:                 newAudit(createdBy),
		OperatorRef:           d.OperatorRef,
		OperatorName:          strings.TrimSpace(d.OperatorName),
		ApplicationType:       d.ApplicationType,
		PreviousLicenseNumber: strings.TrimSpace(d.PreviousLicenseNumber),
		Status:                LicenseDraft,
		AttachedDocuments:     docs,
	}
	l.AddDomainEvent(NewCaseCreatedEvent(EntityOperatorLicense, l.ID, string(l.Status), createdBy, now))
	return l, nil
}

// Entity implements Case
func (l *OperatorLicense) Entity() EntityType { return EntityOperatorLicense }

// CurrentStatus implements Case
func (l *OperatorLicense) CurrentStatus() string { return string(l.Status) }

// AvailableTransitions implements Case
func (l *OperatorLicense) AvailableTransitions() []Transition {
	return licenseTable.Available(l.Status)
}

// Apply implements Case
func (l *OperatorLicense) Apply(tr Transition, in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := licenseTable.Next(l.Status, tr)
	if err != nil {
		return err
	}
	if err := l.guard(tr, in); err != nil {
		return err
	}

	switch tr {
	case TransitionSubmit:
		l.InfoRequest = ""
	case TransitionScheduleTest:
		l.TestDate = datePtr(*in.TestDate)
		l.TestNotes = strOr(in.TestNotes, l.TestNotes)
	case TransitionRecordTestPass, TransitionRecordTestFail:
		l.TestNotes = strOr(in.TestNotes, l.TestNotes)
	case TransitionRequestInfo:
		l.InfoRequest = strOr(in.Reason, str(in.Notes))
	case TransitionApprove:
		l.approve(in, actor, now)
	case TransitionReject:
		l.RejectionReason = str(in.Reason)
		l.ReviewedByRef = uuidPtr(actor)
	case TransitionSuspend:
		l.SuspensionReason = str(in.Reason)
	case TransitionUnsuspend:
		l.SuspensionReason = ""
	case TransitionRevoke:
		l.RevocationReason = str(in.Reason)
	}

	from := l.Status
	l.Status = to
	stamp(&l.BaseAggregateRoot, &l.audit, EntityOperatorLicense, tr, string(from), string(to), actor, now)
	return nil
}

// guard checks the transition's required fields before anything is mutated
func (l *OperatorLicense) guard(tr Transition, in TransitionInput) error {
	var m missing
	switch tr {
	case TransitionSubmit:
		m.require(l.ApplicationType != LicenseRenewal || l.PreviousLicenseNumber != "", "previousLicenseNumber")
	case TransitionScheduleTest:
		m.require(in.TestDate != nil && !in.TestDate.IsZero(), "testDate")
	case TransitionApprove:
		m.require(strOr(in.AssignedLicenseNumber, l.AssignedLicenseNumber) != "", "assignedLicenseNumber")
	case TransitionSuspend, TransitionRevoke:
		m.require(str(in.Reason) != "", "reason")
	}
	return m.err()
}

func (l *OperatorLicense) approve(in TransitionInput, actor uuid.UUID, now time.Time) {
	l.AssignedLicenseNumber = strOr(in.AssignedLicenseNumber, l.AssignedLicenseNumber)
	l.ApprovedAt = timePtr(now)
	l.ReviewedByRef = uuidPtr(actor)
	l.InfoRequest = ""

	issuedAt := now
	switch {
	case in.IssuedAt != nil:
		issuedAt = *in.IssuedAt
	case l.IssuedAt != nil:
		issuedAt = *l.IssuedAt
	}
	l.IssuedAt = timePtr(issuedAt)
	l.ExpiryDate = dateOr(in.ExpiryDate, l.ExpiryDate)
	if l.ExpiryDate == nil {
		l.ExpiryDate = datePtr(DateOf(issuedAt).AddYears(LicenseValidityYears))
	}
}

// IsDueToExpire reports whether an approved license's expiry date has passed
func (l *OperatorLicense) IsDueToExpire(now time.Time) bool {
	return l.Status == LicenseApproved && l.ExpiryDate != nil && l.ExpiryDate.Before(DateOf(now))
}
