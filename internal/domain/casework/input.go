package casework

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransitionInput carries the optional payload of any transition. Each
// aggregate reads only the fields its transition needs.
type TransitionInput struct {
	Reason *string `json:"reason,omitempty"`
	Notes  *string `json:"notes,omitempty"`

	// Registration and license approval
	ScaRegoNo             *string    `json:"scaRegoNo,omitempty"`
	EffectiveDate         *Date      `json:"effectiveDate,omitempty"`
	ExpiryDate            *Date      `json:"expiryDate,omitempty"`
	AssignedLicenseNumber *string    `json:"assignedLicenseNumber,omitempty"`
	IssuedAt              *time.Time `json:"issuedAt,omitempty"`

	// Suspension
	SuspensionStartDate *Date `json:"suspensionStartDate,omitempty"`
	SuspensionEndDate   *Date `json:"suspensionEndDate,omitempty"`

	// Registration details edit
	Owners []Owner `json:"owners,omitempty"`
	Craft  *Craft  `json:"craft,omitempty"`

	// Inspection
	ScheduledDate     *Date           `json:"scheduledDate,omitempty"`
	InspectorRef      *uuid.UUID      `json:"inspectorRef,omitempty"`
	InspectionDate    *Date           `json:"inspectionDate,omitempty"`
	ChecklistItems    []ChecklistItem `json:"checklistItems,omitempty"`
	OverallResult     *OverallResult  `json:"overallResult,omitempty"`
	Findings          *string         `json:"findings,omitempty"`
	CorrectiveActions *string         `json:"correctiveActions,omitempty"`
	FollowUpRequired  *bool           `json:"followUpRequired,omitempty"`

	// Operator license test
	TestDate  *Date   `json:"testDate,omitempty"`
	TestNotes *string `json:"testNotes,omitempty"`

	// Infringement
	InfringementItems    []InfringementItem `json:"infringementItems,omitempty"`
	LocationDescription  *string            `json:"locationDescription,omitempty"`
	OfficerNotes         *string            `json:"officerNotes,omitempty"`
	OffenderSignatureURL *string            `json:"offenderSignatureUrl,omitempty"`
	PaymentReference     *string            `json:"paymentReference,omitempty"`
	PaidAt               *time.Time         `json:"paidAt,omitempty"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func strOr(p *string, fallback string) string {
	if s := str(p); s != "" {
		return s
	}
	return fallback
}

func dateOr(p *Date, fallback *Date) *Date {
	if p != nil && !p.IsZero() {
		return datePtr(*p)
	}
	return fallback
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
