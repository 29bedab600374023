package enum

import "strings"

// Classification is the verdict for one server reply.
type Classification int

const (
	ClassInvalid Classification = iota
	ClassValid
	ClassAmbiguous
)

// Many servers wrap a natural-language rejection in a nominally-successful
// 2xx code ("250 2.1.5 Cannot VRFY user..."). Any of these substrings
// downgrades a success code to invalid, which is what keeps the false
// positive rate below naive code-only tools.
var invalidIndicators = []string{
	"cannot", "invalid", "not found", "unknown", "unable",
	"disabled", "denied", "reject", "fail", "error",
}

// Classify maps the status code and text of the method reply to a verdict.
// An ambiguous verdict (550 mentioning "user" without "not found") is
// recorded for diagnostics only and never counted valid or invalid.
func Classify(code int, text string) Classification {
	lower := strings.ToLower(text)

	if code == 250 || code == 251 || code == 252 ||
		(code >= 200 && code < 300 && strings.Contains(lower, "ok")) {
		for _, indicator := range invalidIndicators {
			if strings.Contains(lower, indicator) {
				return ClassInvalid
			}
		}
		return ClassValid
	}

	if code == 550 && strings.Contains(lower, "user") && !strings.Contains(lower, "not found") {
		return ClassAmbiguous
	}

	return ClassInvalid
}
