// internal/service/files_test.go
package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGeneratedFileName(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	name := generatedFileName("Amina El Fassi", "passport", "scan.PDF", now, 0)
	assert.True(t, strings.HasPrefix(name, "amina_el_fassi_passport_"))
	assert.True(t, strings.HasSuffix(name, "_0.pdf"))

	// Applicant-controlled names never leak into the stored name.
	name = generatedFileName("Amina", "cv", "../../etc/passwd", now, 1)
	assert.NotContains(t, name, "..")
	assert.NotContains(t, name, "/")

	// Oversized or pathy extensions are dropped.
	name = generatedFileName("Amina", "photo", "x."+strings.Repeat("a", 20), now, 2)
	assert.True(t, strings.HasSuffix(name, "_2"))

	name = generatedFileName("Amina", "other", "noextension", now, 3)
	assert.True(t, strings.HasSuffix(name, "_3"))
}

func TestSanitizeNamePart(t *testing.T) {
	assert.Equal(t, "amina_el_fassi", sanitizeNamePart("Amina El Fassi"))
	assert.Equal(t, "jean_pierre", sanitizeNamePart("Jean-Pierre"))
	assert.Equal(t, "oconnor", sanitizeNamePart("O'Connor"))
	assert.Equal(t, "applicant", sanitizeNamePart("株式会社"))
	assert.Equal(t, "applicant", sanitizeNamePart("  "))
	assert.LessOrEqual(t, len(sanitizeNamePart(strings.Repeat("abc ", 30))), 40)
}

func TestNewLinkToken(t *testing.T) {
	a := newLinkToken()
	b := newLinkToken()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	for _, c := range a {
		assert.Contains(t, "0123456789abcdef", string(c))
	}
}

func TestIsAllowedFileType(t *testing.T) {
	assert.True(t, isAllowedFileType("application/pdf"))
	assert.True(t, isAllowedFileType("image/JPEG"))
	assert.True(t, isAllowedFileType("image/png; charset=binary"))
	assert.False(t, isAllowedFileType("application/x-sh"))
	assert.False(t, isAllowedFileType("text/html"))
	assert.False(t, isAllowedFileType(""))
}
