// internal/models/activity.go
package models

import "time"

// Audit actions. Every mutating operation writes exactly one entry.
const (
	ActionSubmissionCreated     = "submission_created"
	ActionSubmissionValidated   = "submission_validated"
	ActionSubmissionCallConfirm = "submission_call_confirmed"
	ActionSubmissionConverted   = "submission_converted"
	ActionSubmissionDeleted     = "submission_deleted"
	ActionPaymentLinkGenerated  = "payment_link_generated"
	ActionPaymentReceiptUpload  = "payment_receipt_uploaded"
	ActionPaymentConfirmed      = "payment_confirmed"
	ActionPaymentRejected       = "payment_rejected"
	ActionDocumentLinkGenerated = "document_link_generated"
	ActionDocumentsUploaded     = "documents_uploaded"
	ActionDocumentVerified      = "document_verified"
	ActionDocumentRejected      = "document_rejected"
	ActionDocumentReplacement   = "document_replacement_requested"
	ActionLinkDeactivated       = "link_deactivated"
	ActionUserLogin             = "user_login"
)

// ActivityLog is an append-only audit entry. The application never updates
// or deletes rows; only the operator purge tool removes old entries.
type ActivityLog struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"userId,omitempty"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	Details    map[string]interface{} `json:"details,omitempty"`
	IPAddress  string                 `json:"ipAddress,omitempty"`
	UserAgent  string                 `json:"userAgent,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}
