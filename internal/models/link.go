// internal/models/link.go
package models

import "time"

// DocumentLink is a tokenized public upload channel for one submission.
type DocumentLink struct {
	ID           string     `json:"id"`
	SubmissionID string     `json:"submissionId"`
	Token        string     `json:"token"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	IsActive     bool       `json:"isActive"`
	MaxUploads   int        `json:"maxUploads"`
	UploadCount  int        `json:"uploadCount"`
	Notes        string     `json:"notes,omitempty"`
	GeneratedBy  string     `json:"generatedBy"`
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// IsValid reports whether the link admits uploads at the given instant.
// All three predicates must hold: active, unexpired, capacity remaining.
func (l *DocumentLink) IsValid(now time.Time) bool {
	return l.IsActive && now.Before(l.ExpiresAt) && l.UploadCount < l.MaxUploads
}

func (l *DocumentLink) RemainingUploads() int {
	if r := l.MaxUploads - l.UploadCount; r > 0 {
		return r
	}
	return 0
}

// Payment link lifecycle.
const (
	PaymentStatusPending         = "pending"
	PaymentStatusReceiptUploaded = "receipt_uploaded"
	PaymentStatusConfirmed       = "confirmed"
	PaymentStatusRejected        = "rejected"
)

// BankDetails is the transfer destination shown on the public payment page.
type BankDetails struct {
	BankName      string `json:"bankName,omitempty"`
	AccountName   string `json:"accountName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	IBAN          string `json:"iban,omitempty"`
	SwiftCode     string `json:"swiftCode,omitempty"`
}

// PaymentLink is a tokenized public payment request for one submission.
type PaymentLink struct {
	ID              string      `json:"id"`
	SubmissionID    string      `json:"submissionId"`
	Token           string      `json:"token"`
	Amount          float64     `json:"amount"`
	Currency        string      `json:"currency"`
	BankDetails     BankDetails `json:"bankDetails"`
	ExpiresAt       time.Time   `json:"expiresAt"`
	IsActive        bool        `json:"isActive"`
	Status          string      `json:"status"`
	ReceiptFile     string      `json:"receiptFile,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	GeneratedBy     string      `json:"generatedBy"`
	ConfirmedBy     string      `json:"confirmedBy,omitempty"`
	ConfirmedAt     *time.Time  `json:"confirmedAt,omitempty"`
	RejectedBy      string      `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time  `json:"rejectedAt,omitempty"`
	RejectionReason string      `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// IsValid reports whether the link accepts a receipt at the given instant.
func (l *PaymentLink) IsValid(now time.Time) bool {
	return l.IsActive && now.Before(l.ExpiresAt) && l.Status == PaymentStatusPending
}

// LinkContext is the sanitized view returned by the public validate-link
// endpoints. It exposes only what the applicant page needs to render; the
// contact fields are the applicant's own data on that link.
type LinkContext struct {
	SubmissionID   string       `json:"submissionId"`
	ApplicantName  string       `json:"applicantName"`
	Phone          string       `json:"phone"`
	Email          string       `json:"email,omitempty"`
	Service        string       `json:"service"`
	ExpiresAt      time.Time    `json:"expiresAt"`
	RemainingSlots int          `json:"remainingSlots,omitempty"`
	Amount         float64      `json:"amount,omitempty"`
	Currency       string       `json:"currency,omitempty"`
	BankDetails    *BankDetails `json:"bankDetails,omitempty"`
	Notes          string       `json:"notes,omitempty"`
}
