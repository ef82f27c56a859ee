// internal/common/validation/schema.go
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// GetErrorMessages flattens validation errors into printable strings.
func (r *ValidationResult) GetErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return msgs
}

// ValidateInput validates input against a JSON schema document.
func ValidateInput(input map[string]interface{}, schemaJSON string) *ValidationResult {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(input)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(schema)", Message: err.Error()}},
		}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
		})
	}
	return &ValidationResult{Valid: false, Errors: errs}
}

// SubmissionSchema validates the public contact form payload.
const SubmissionSchema = `{
	"type": "object",
	"properties": {
		"name":    {"type": "string", "minLength": 2, "maxLength": 120},
		"email":   {"type": "string", "pattern": "^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$"},
		"phone":   {"type": "string", "minLength": 6, "maxLength": 20},
		"service": {"type": "string", "enum": ["work_visa", "study_visa", "work_placement", "tourist_visa", "family_reunification", "other"]},
		"message": {"type": "string", "minLength": 1, "maxLength": 5000},
		"source":  {"type": "string", "maxLength": 60}
	},
	"required": ["name", "phone", "service", "message"],
	"additionalProperties": false
}`
