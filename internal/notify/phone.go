// internal/notify/phone.go
package notify

import "strings"

// NormalizePhone converts an applicant-entered phone number into E.164 form
// for SMS delivery. homeCC is the agency's country calling code; knownCCs are
// the calling codes the agency serves.
//
// The rules, in order:
//   - a leading + keeps the number, with formatting stripped
//   - a leading 00 is the international prefix and becomes +
//   - a leading 0 followed by a known calling code drops the 0
//   - any other leading 0 is a national number in the home country
//   - bare digits starting with a known calling code get a +
//   - anything else is assumed already international and gets a +
func NormalizePhone(raw, homeCC string, knownCCs []string) string {
	trimmed := strings.TrimSpace(raw)
	hasPlus := strings.HasPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	if hasPlus {
		return "+" + digits
	}
	if strings.HasPrefix(digits, "00") {
		return "+" + digits[2:]
	}
	if strings.HasPrefix(digits, "0") {
		rest := digits[1:]
		for _, cc := range knownCCs {
			if strings.HasPrefix(rest, cc) {
				return "+" + rest
			}
		}
		return "+" + homeCC + rest
	}
	for _, cc := range knownCCs {
		if strings.HasPrefix(digits, cc) {
			return "+" + digits
		}
	}
	return "+" + digits
}
