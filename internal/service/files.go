// internal/service/files.go
package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// newLinkToken returns a 64-char hex token from 32 cryptographically random
// bytes. Tokens are the only credential on public links.
func newLinkToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// allowedFileTypes is the MIME whitelist for public uploads.
var allowedFileTypes = map[string]bool{
	"application/pdf":    true,
	"image/jpeg":         true,
	"image/jpg":          true,
	"image/png":          true,
	"image/gif":          true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

func isAllowedFileType(contentType string) bool {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return allowedFileTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// generatedFileName builds the storage name for an upload from the applicant's
// sanitized name and the document kind. Applicant-supplied file names never
// reach the filesystem; only the extension survives, sanitized.
func generatedFileName(applicantName, kind, originalName string, now time.Time, index int) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return fmt.Sprintf("%s_%s_%d_%d%s", sanitizeNamePart(applicantName), kind, now.UnixNano(), index, ext)
}

// sanitizeNamePart reduces a display name to a short, filesystem-safe slug.
func sanitizeNamePart(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		s = "applicant"
	}
	return s
}
