package enum

// OutcomeKind is the closed set of ways a single probe can end. Only
// KindInfraFailure is eligible for the retry pass; the other kinds are
// terminal determinations about the username itself.
type OutcomeKind int

const (
	KindInvalid OutcomeKind = iota
	KindValid
	KindAmbiguous
	KindInfraFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case KindValid:
		return "valid"
	case KindInvalid:
		return "invalid"
	case KindAmbiguous:
		return "ambiguous"
	case KindInfraFailure:
		return "infra_failure"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one probe execution.
type Outcome struct {
	Username string
	Attempt  int // 0 = first pass, 1 = retry pass
	Kind     OutcomeKind
	Address  string // the identity actually probed (domain-qualified if configured)
	Response string // raw server reply, set for ambiguous outcomes
	Err      error  // set for infrastructure failures
}
