// internal/notify/phone_test.go
package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var knownCCs = []string{"212", "33", "34", "49", "1", "44"}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"already e164", "+212612345678", "+212612345678"},
		{"e164 with formatting", "+212 612-345-678", "+212612345678"},
		{"international prefix", "00212612345678", "+212612345678"},
		{"zero then home cc", "0212612345678", "+212612345678"},
		{"zero then foreign cc", "033612345678", "+33612345678"},
		{"national number", "0612345678", "+212612345678"},
		{"bare known cc", "212612345678", "+212612345678"},
		{"bare french cc", "33612345678", "+33612345678"},
		{"unknown cc assumed international", "971501234567", "+971501234567"},
		{"whitespace and dashes", "  06-12-34-56-78 ", "+212612345678"},
		{"empty", "", ""},
		{"no digits", "abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.raw, "212", knownCCs)
			assert.Equal(t, tt.expected, got)
		})
	}
}
