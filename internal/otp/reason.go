package otp

// FailureReason says why a verification was rejected. It is recorded in audit logs, metrics
// and auth events only; callers of VerifyOTP always receive ErrAuthFailed.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	// ReasonNoChallenge covers both "never requested" and "expired".
	ReasonNoChallenge
	ReasonLockedOut
	ReasonCodeMismatch
	// ReasonIdentityUnavailable means the code matched but the email has no active user.
	ReasonIdentityUnavailable
	// ReasonAlreadyConsumed means a concurrent verification redeemed the challenge first.
	ReasonAlreadyConsumed
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoChallenge:
		return "no_challenge"
	case ReasonLockedOut:
		return "locked_out"
	case ReasonCodeMismatch:
		return "code_mismatch"
	case ReasonIdentityUnavailable:
		return "identity_inactive"
	case ReasonAlreadyConsumed:
		return "already_consumed"
	default:
		return "unknown"
	}
}
