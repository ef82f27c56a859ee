// internal/models/document.go
package models

import "time"

// Document verification states.
const (
	DocumentStatusPending          = "pending"
	DocumentStatusVerified         = "verified"
	DocumentStatusRejected         = "rejected"
	DocumentStatusNeedsReplacement = "needs_replacement"
)

// Storage backends recorded on documents.
const (
	StorageTypeLocal = "local"
	StorageTypeS3    = "s3"
)

// Document categories accepted on upload.
var documentTypes = map[string]bool{
	"passport":            true,
	"national_id":         true,
	"diploma":             true,
	"cv":                  true,
	"photo":               true,
	"work_certificate":    true,
	"bank_statement":      true,
	"medical_certificate": true,
	"other":               true,
}

func IsValidDocumentType(t string) bool {
	return documentTypes[t]
}

// Document is one uploaded file tied to a submission and the link that
// admitted it.
type Document struct {
	ID              string     `json:"id"`
	SubmissionID    string     `json:"submissionId"`
	DocumentLinkID  string     `json:"documentLinkId"`
	FileName        string     `json:"fileName"`
	OriginalName    string     `json:"originalName"`
	FileType        string     `json:"fileType"`
	FileSize        int64      `json:"fileSize"`
	FilePath        string     `json:"-"`
	StorageType     string     `json:"storageType"`
	DocumentType    string     `json:"documentType"`
	Status          string     `json:"status"`
	VerifiedBy      string     `json:"verifiedBy,omitempty"`
	VerifiedAt      *time.Time `json:"verifiedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}
