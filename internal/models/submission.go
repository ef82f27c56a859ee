// internal/models/submission.go
package models

import "time"

// Coarse submission status shown in staff lists. The workflow stage below is
// the authoritative state; this field follows it.
const (
	SubmissionStatusNew       = "new"
	SubmissionStatusViewed    = "viewed"
	SubmissionStatusContacted = "contacted"
	SubmissionStatusCompleted = "completed"
)

// WorkflowStatus is the stage of a submission in the intake pipeline.
type WorkflowStatus string

const (
	StagePendingValidation  WorkflowStatus = "pending_validation"
	StageValidated          WorkflowStatus = "validated"
	StageCallConfirmed      WorkflowStatus = "call_confirmed"
	StagePaymentRequested   WorkflowStatus = "payment_requested"
	StagePaymentUploaded    WorkflowStatus = "payment_uploaded"
	StagePaymentConfirmed   WorkflowStatus = "payment_confirmed"
	StageDocumentsRequested WorkflowStatus = "documents_requested"
	StageDocumentsUploaded  WorkflowStatus = "documents_uploaded"
	StageDocumentsVerified  WorkflowStatus = "documents_verified"
	StageConvertedToClient  WorkflowStatus = "converted_to_client"
)

// IsTerminal reports whether no further workflow action applies.
func (s WorkflowStatus) IsTerminal() bool {
	return s == StageConvertedToClient
}

// Services offered on the public intake form.
const (
	ServiceWorkVisa            = "work_visa"
	ServiceStudyVisa           = "study_visa"
	ServiceWorkPlacement       = "work_placement"
	ServiceTouristVisa         = "tourist_visa"
	ServiceFamilyReunification = "family_reunification"
	ServiceOther               = "other"
)

// Submission is one public intake form entry moving through the pipeline.
type Submission struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Email             string         `json:"email,omitempty"`
	Phone             string         `json:"phone"`
	Service           string         `json:"service"`
	Message           string         `json:"message"`
	Status            string         `json:"status"`
	Source            string         `json:"source,omitempty"`
	WorkflowStatus    WorkflowStatus `json:"workflowStatus"`
	ConvertedToClient bool           `json:"convertedToClient"`
	ClientID          string         `json:"clientId,omitempty"`
	ReviewedBy        string         `json:"reviewedBy,omitempty"`
	ReviewedAt        *time.Time     `json:"reviewedAt,omitempty"`
	ValidatedBy       string         `json:"validatedBy,omitempty"`
	ValidatedAt       *time.Time     `json:"validatedAt,omitempty"`
	CallConfirmedBy   string         `json:"callConfirmedBy,omitempty"`
	CallConfirmedAt   *time.Time     `json:"callConfirmedAt,omitempty"`
	CallNotes         string         `json:"callNotes,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// DocumentStats summarizes the verification state of a submission's uploads.
type DocumentStats struct {
	Total            int `json:"total"`
	Pending          int `json:"pending"`
	Verified         int `json:"verified"`
	Rejected         int `json:"rejected"`
	NeedsReplacement int `json:"needsReplacement"`
}

// AllVerified is the gate for advancing to documents_verified: at least one
// document and every one of them verified. Pending, rejected, and
// replacement-awaiting documents all hold the gate closed.
func (s DocumentStats) AllVerified() bool {
	return s.Total > 0 && s.Verified == s.Total
}
