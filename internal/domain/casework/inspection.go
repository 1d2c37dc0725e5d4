package casework

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scaregistry/backend/internal/domain/shared"
)

// InspectionStatus is the lifecycle status of an inspection
type InspectionStatus string

const (
	InspectionScheduled     InspectionStatus = "Scheduled"
	InspectionInProgress    InspectionStatus = "InProgress"
	InspectionPendingReview InspectionStatus = "PendingReview"
	InspectionPassed        InspectionStatus = "Passed"
	InspectionFailed        InspectionStatus = "Failed"
	InspectionCancelled     InspectionStatus = "Cancelled"
)

// InspectionType classifies why an inspection is carried out
type InspectionType string

const (
	InspectionInitial    InspectionType = "Initial"
	InspectionAnnual     InspectionType = "Annual"
	InspectionCompliance InspectionType = "Compliance"
	InspectionFollowUp   InspectionType = "FollowUp"
)

// IsValid checks if the inspection type is known
func (t InspectionType) IsValid() bool {
	switch t {
	case InspectionInitial, InspectionAnnual, InspectionCompliance, InspectionFollowUp:
		return true
	}
	return false
}

// ChecklistResult is the answer recorded against a checklist item
type ChecklistResult string

const (
	ChecklistYes           ChecklistResult = "Yes"
	ChecklistNo            ChecklistResult = "No"
	ChecklistNotApplicable ChecklistResult = "N/A"
)

// OverallResult is the inspector's conclusion
type OverallResult string

const (
	ResultPass                    OverallResult = "Pass"
	ResultPassWithRecommendations OverallResult = "PassWithRecommendations"
	ResultFail                    OverallResult = "Fail"
	ResultNotApplicable           OverallResult = "N/A"
)

// IsValid checks if the overall result is known
func (r OverallResult) IsValid() bool {
	switch r {
	case ResultPass, ResultPassWithRecommendations, ResultFail, ResultNotApplicable:
		return true
	}
	return false
}

// ChecklistItem is one line of the inspection checklist
type ChecklistItem struct {
	ItemID      string          `json:"itemId"`
	Description string          `json:"description"`
	Result      ChecklistResult `json:"result,omitempty"`
	Comments    string          `json:"comments,omitempty"`
}

var inspectionTable = NewTransitionTable(EntityInspection,
	Row[InspectionStatus]{From: []InspectionStatus{InspectionScheduled}, On: TransitionReschedule, Stay: true},
	Row[InspectionStatus]{From: []InspectionStatus{InspectionScheduled}, On: TransitionStart, To: InspectionInProgress},
	Row[InspectionStatus]{From: []InspectionStatus{InspectionInProgress}, On: TransitionSaveProgress, Stay: true},
	Row[InspectionStatus]{From: []InspectionStatus{InspectionInProgress}, On: TransitionSubmitForReview, To: InspectionPendingReview},
	Row[InspectionStatus]{From: []InspectionStatus{InspectionPendingReview}, On: TransitionApprove, To: InspectionPassed},
	Row[InspectionStatus]{From: []InspectionStatus{InspectionPendingReview}, On: TransitionReject, To: InspectionFailed},
	Row[InspectionStatus]{From: []InspectionStatus{InspectionScheduled, InspectionInProgress}, On: TransitionCancel, To: InspectionCancelled},
)

// NewInspectionRequest is the payload for scheduling an inspection
type NewInspectionRequest struct {
	RegistrationRef uuid.UUID       `json:"registrationRef"`
	InspectorRef    *uuid.UUID      `json:"inspectorRef,omitempty"`
	InspectionType  InspectionType  `json:"inspectionType"`
	ScheduledDate   Date            `json:"scheduledDate"`
	ChecklistItems  []ChecklistItem `json:"checklistItems,omitempty"`
}

// Inspection is a scheduled physical inspection of a registered craft
type Inspection struct {
	shared.BaseAggregateRoot
	audit
	RegistrationRef    uuid.UUID             `json:"registrationRef"`
	RegistrationData   *RegistrationSnapshot `json:"registrationData,omitempty"`
	InspectorRef       *uuid.UUID            `json:"inspectorRef,omitempty"`
	InspectorData      *PersonSnapshot       `json:"inspectorData,omitempty"`
	InspectionType     InspectionType        `json:"inspectionType"`
	Status             InspectionStatus      `json:"status"`
	ScheduledDate      Date                  `json:"scheduledDate"`
	InspectionDate     *Date                 `json:"inspectionDate,omitempty"`
	ChecklistItems     []ChecklistItem       `json:"checklistItems"`
	OverallResult      OverallResult         `json:"overallResult,omitempty"`
	Findings           string                `json:"findings,omitempty"`
	CorrectiveActions  string                `json:"correctiveActions,omitempty"`
	FollowUpRequired   bool                  `json:"followUpRequired"`
	CompletedAt        *time.Time            `json:"completedAt,omitempty"`
	ReviewedAt         *time.Time            `json:"reviewedAt,omitempty"`
	ReviewedByRef      *uuid.UUID            `json:"reviewedByRef,omitempty"`
	ReviewNotes        string                `json:"reviewNotes,omitempty"`
	CancellationReason string                `json:"cancellationReason,omitempty"`
}

// NewInspection schedules an inspection. Snapshots are attached by the caller.
func NewInspection(d NewInspectionRequest, createdBy uuid.UUID, now time.Time) (*Inspection, error) {
	var m missing
	m.require(d.RegistrationRef != uuid.Nil, "registrationRef")
	m.require(d.InspectionType.IsValid(), "inspectionType")
	m.require(!d.ScheduledDate.IsZero(), "scheduledDate")
	m = append(m, validateChecklist(d.ChecklistItems)...)
	if err := m.err(); err != nil {
		return nil, err
	}
	items := d.ChecklistItems
	if items == nil {
		items = []ChecklistItem{}
	}
	i := &Inspection{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		audit:             newAudit(createdBy),
		RegistrationRef:   d.RegistrationRef,
		InspectorRef:      d.InspectorRef,
		InspectionType:    d.InspectionType,
		Status:            InspectionScheduled,
		ScheduledDate:     d.ScheduledDate,
		ChecklistItems:    items,
	}
	i.AddDomainEvent(NewCaseCreatedEvent(EntityInspection, i.ID, string(i.Status), createdBy, now))
	return i, nil
}

func validateChecklist(items []ChecklistItem) missing {
	var m missing
	for n, item := range items {
		switch item.Result {
		case "", ChecklistYes, ChecklistNo, ChecklistNotApplicable:
		default:
			m = append(m, fmt.Sprintf("checklistItems[%d].result", n))
		}
	}
	return m
}

// Entity implements Case
func (i *Inspection) Entity() EntityType { return EntityInspection }

// CurrentStatus implements Case
func (i *Inspection) CurrentStatus() string { return string(i.Status) }

// AvailableTransitions implements Case
func (i *Inspection) AvailableTransitions() []Transition {
	return inspectionTable.Available(i.Status)
}

// IsAssignee reports whether userID is the assigned inspector
func (i *Inspection) IsAssignee(userID uuid.UUID) bool {
	return i.InspectorRef != nil && *i.InspectorRef == userID
}

// AuthorRef is the assigned inspector, who writes the report under review,
// falling back to whoever scheduled the inspection
func (i *Inspection) AuthorRef() uuid.UUID {
	if i.InspectorRef != nil {
		return *i.InspectorRef
	}
	return i.CreatedByRef
}

// AttachRegistration caches the registration snapshot
func (i *Inspection) AttachRegistration(s RegistrationSnapshot) {
	i.RegistrationData = &s
}

// AttachInspector caches the inspector snapshot
func (i *Inspection) AttachInspector(s PersonSnapshot) {
	i.InspectorData = &s
}

// Apply implements Case
func (i *Inspection) Apply(tr Transition, in TransitionInput, actor uuid.UUID, now time.Time) error {
	switch tr {
	case TransitionReschedule:
		return i.Reschedule(in, actor, now)
	case TransitionStart:
		return i.Start(actor, now)
	case TransitionSaveProgress:
		return i.SaveProgress(in, actor, now)
	case TransitionSubmitForReview:
		return i.SubmitForReview(in, actor, now)
	case TransitionApprove:
		return i.Review(TransitionApprove, in, actor, now)
	case TransitionReject:
		return i.Review(TransitionReject, in, actor, now)
	case TransitionCancel:
		return i.Cancel(in, actor, now)
	}
	return NewIllegalTransitionError(EntityInspection, string(i.Status), tr)
}

func (i *Inspection) move(tr Transition, to InspectionStatus, actor uuid.UUID, now time.Time) {
	from := i.Status
	i.Status = to
	stamp(&i.BaseAggregateRoot, &i.audit, EntityInspection, tr, string(from), string(to), actor, now)
}

// Reschedule moves the scheduled date and optionally reassigns the inspector.
// A changed inspector invalidates the inspector snapshot.
func (i *Inspection) Reschedule(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := inspectionTable.Next(i.Status, TransitionReschedule)
	if err != nil {
		return err
	}
	if in.ScheduledDate == nil || in.ScheduledDate.IsZero() {
		return shared.NewValidationError("scheduledDate")
	}
	i.ScheduledDate = *in.ScheduledDate
	if in.InspectorRef != nil && !i.IsAssignee(*in.InspectorRef) {
		i.InspectorRef = uuidPtr(*in.InspectorRef)
		i.InspectorData = nil
	}
	i.move(TransitionReschedule, to, actor, now)
	return nil
}

// Start begins the inspection
func (i *Inspection) Start(actor uuid.UUID, now time.Time) error {
	to, err := inspectionTable.Next(i.Status, TransitionStart)
	if err != nil {
		return err
	}
	if i.InspectionDate == nil {
		i.InspectionDate = datePtr(DateOf(now))
	}
	i.move(TransitionStart, to, actor, now)
	return nil
}

// progress is the set of recordable inspection fields after applying input
type progress struct {
	inspectionDate    *Date
	checklist         []ChecklistItem
	overallResult     OverallResult
	findings          string
	correctiveActions string
	followUpRequired  bool
}

func (i *Inspection) progressFrom(in TransitionInput) (progress, missing) {
	p := progress{
		inspectionDate:    dateOr(in.InspectionDate, i.InspectionDate),
		checklist:         i.ChecklistItems,
		overallResult:     i.OverallResult,
		findings:          i.Findings,
		correctiveActions: i.CorrectiveActions,
		followUpRequired:  i.FollowUpRequired,
	}
	var m missing
	if in.ChecklistItems != nil {
		p.checklist = in.ChecklistItems
		m = append(m, validateChecklist(in.ChecklistItems)...)
	}
	if in.OverallResult != nil {
		p.overallResult = *in.OverallResult
		m.require(p.overallResult.IsValid(), "overallResult")
	}
	if in.Findings != nil {
		p.findings = strings.TrimSpace(*in.Findings)
	}
	if in.CorrectiveActions != nil {
		p.correctiveActions = strings.TrimSpace(*in.CorrectiveActions)
	}
	if in.FollowUpRequired != nil {
		p.followUpRequired = *in.FollowUpRequired
	}
	return p, m
}

func (i *Inspection) record(p progress) {
	i.InspectionDate = p.inspectionDate
	i.ChecklistItems = p.checklist
	i.OverallResult = p.overallResult
	i.Findings = p.findings
	i.CorrectiveActions = p.correctiveActions
	i.FollowUpRequired = p.followUpRequired
}

// SaveProgress records checklist answers and findings without leaving InProgress
func (i *Inspection) SaveProgress(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := inspectionTable.Next(i.Status, TransitionSaveProgress)
	if err != nil {
		return err
	}
	p, m := i.progressFrom(in)
	if err := m.err(); err != nil {
		return err
	}
	i.record(p)
	i.move(TransitionSaveProgress, to, actor, now)
	return nil
}

// SubmitForReview completes the inspection. Inspection date, findings and
// overall result must be present once the input is applied.
func (i *Inspection) SubmitForReview(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := inspectionTable.Next(i.Status, TransitionSubmitForReview)
	if err != nil {
		return err
	}
	p, m := i.progressFrom(in)
	m.require(p.inspectionDate != nil, "inspectionDate")
	m.require(p.findings != "", "findings")
	m.require(p.overallResult != "", "overallResult")
	if err := m.err(); err != nil {
		return err
	}
	i.record(p)
	i.CompletedAt = timePtr(now)
	i.move(TransitionSubmitForReview, to, actor, now)
	return nil
}

// Review approves or rejects a completed inspection
func (i *Inspection) Review(tr Transition, in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := inspectionTable.Next(i.Status, tr)
	if err != nil {
		return err
	}
	i.ReviewedAt = timePtr(now)
	i.ReviewedByRef = uuidPtr(actor)
	i.ReviewNotes = strOr(in.Notes, str(in.Reason))
	i.move(tr, to, actor, now)
	return nil
}

// Cancel abandons an inspection that has not been submitted
func (i *Inspection) Cancel(in TransitionInput, actor uuid.UUID, now time.Time) error {
	to, err := inspectionTable.Next(i.Status, TransitionCancel)
	if err != nil {
		return err
	}
	reason := str(in.Reason)
	if reason == "" {
		return shared.NewValidationError("reason")
	}
	i.CancellationReason = reason
	i.move(TransitionCancel, to, actor, now)
	return nil
}
