package sso

// Signal is the chain-control value returned by the hand-off entry points.
// The coordinators are designed to sit in a preprocessor chain whose
// convention is to never halt: they always signal Proceed, whatever
// happened internally.
type Signal string

// Proceed tells the processing chain to continue with the next step
const Proceed Signal = "proceed"

// Outcome describes what a hand-off attempt actually did. Entry points map
// every outcome to Proceed at the boundary; the internal value is kept for
// logging, metrics, and tests.
type Outcome int

const (
	// OutcomeNone: no hand-off parameter was present; nothing to do.
	OutcomeNone Outcome = iota

	// OutcomeLogin: a principal was established on a session with no
	// active principal.
	OutcomeLogin

	// OutcomeSwitched: the active principal was logged out and the
	// resolved principal logged in.
	OutcomeSwitched

	// OutcomeAlreadyActive: the resolved principal was already active;
	// no state was touched.
	OutcomeAlreadyActive

	// OutcomeUnknownKey: the key or account identifier resolved to
	// nothing; logged, no action taken.
	OutcomeUnknownKey

	// OutcomeRejected: the cross-server credential was missing or failed
	// verification; the active principal was defensively logged out.
	OutcomeRejected

	// OutcomeFailed: a collaborator call failed; the request continues
	// as if no hand-off occurred.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeLogin:
		return "login"
	case OutcomeSwitched:
		return "switched"
	case OutcomeAlreadyActive:
		return "already_active"
	case OutcomeUnknownKey:
		return "unknown_key"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureKind classifies what went wrong when an attempt did not hand off
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureRegistry
	FailureUnknownKey
	FailureAccountLookup
	FailureAccountUpdate
	FailureMissingToken
	FailureInvalidToken
	FailureTenantSwitch
	FailureLogin
)

func (f FailureKind) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureRegistry:
		return "registry"
	case FailureUnknownKey:
		return "unknown_key"
	case FailureAccountLookup:
		return "account_lookup"
	case FailureAccountUpdate:
		return "account_update"
	case FailureMissingToken:
		return "missing_token"
	case FailureInvalidToken:
		return "invalid_token"
	case FailureTenantSwitch:
		return "tenant_switch"
	case FailureLogin:
		return "login"
	default:
		return "unknown"
	}
}

// Result is the internal, testable outcome of one hand-off attempt. The
// exported entry points collapse it to Proceed after logging.
type Result struct {
	Outcome Outcome
	Failure FailureKind
	Err     error
}
