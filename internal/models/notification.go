// internal/models/notification.go
package models

import "time"

// Notification types raised by workflow events.
const (
	NotifyNewSubmission       = "new_submission"
	NotifyReceiptUploaded     = "receipt_uploaded"
	NotifyDocumentsUploaded   = "documents_uploaded"
	NotifyDocumentsVerified   = "documents_verified"
	NotifySubmissionConverted = "submission_converted"
)

// Notification is one in-app notification row for one recipient. Fan-out
// creates one per admin per event.
type Notification struct {
	ID          string                 `json:"id"`
	RecipientID string                 `json:"recipientId"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Link        string                 `json:"link,omitempty"`
	Read        bool                   `json:"read"`
	ReadAt      *time.Time             `json:"readAt,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}
