// internal/models/client.go
package models

import "time"

// Client statuses after conversion.
const (
	ClientStatusNew    = "new"
	ClientStatusActive = "active"
	ClientStatusOnHold = "on_hold"
	ClientStatusClosed = "closed"
)

// Client is a converted submission. Contact fields are copied from the
// submission at conversion time; the submission row stays as history.
type Client struct {
	ID           string       `json:"id"`
	SubmissionID string       `json:"submissionId"`
	Name         string       `json:"name"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone"`
	Service      string       `json:"service"`
	Message      string       `json:"message,omitempty"`
	Status       string       `json:"status"`
	AssignedTo   string       `json:"assignedTo,omitempty"`
	Notes        []ClientNote `json:"notes,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// ClientNote is one dated staff note on a client record.
type ClientNote struct {
	ID       string    `json:"id"`
	ClientID string    `json:"clientId"`
	Content  string    `json:"content"`
	AddedBy  string    `json:"addedBy"`
	AddedAt  time.Time `json:"addedAt"`
}
