// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSubmission() map[string]interface{} {
	return map[string]interface{}{
		"name":    "Amina El Fassi",
		"email":   "amina@example.com",
		"phone":   "+212612345678",
		"service": "work_visa",
		"message": "Looking for a seasonal placement.",
	}
}

func TestSubmissionSchemaAcceptsValidPayload(t *testing.T) {
	res := ValidateInput(validSubmission(), SubmissionSchema)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestSubmissionSchemaRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing phone", func(m map[string]interface{}) { delete(m, "phone") }},
		{"missing name", func(m map[string]interface{}) { delete(m, "name") }},
		{"unknown service", func(m map[string]interface{}) { m["service"] = "rocketry" }},
		{"bad email", func(m map[string]interface{}) { m["email"] = "not-an-email" }},
		{"empty message", func(m map[string]interface{}) { m["message"] = "" }},
		{"unknown field", func(m map[string]interface{}) { m["admin"] = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := validSubmission()
			tt.mutate(payload)
			res := ValidateInput(payload, SubmissionSchema)
			assert.False(t, res.Valid)
			assert.NotEmpty(t, res.GetErrorMessages())
		})
	}
}
