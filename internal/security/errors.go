package security

import "errors"

// Verification failures. Callers check them with errors.Is and must not reveal
// anything beyond "unauthorized" to the sender.
var (
	ErrMissingSignature = errors.New("missing signature")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrReplayDetected   = errors.New("replay detected")
	ErrVerification     = errors.New("verification error")
)

// Outcome labels a verification attempt in audit records and metrics.
type Outcome string

const (
	OutcomeAccepted          Outcome = "accepted"
	OutcomeMissingSignature  Outcome = "missing-signature"
	OutcomeInvalidSignature  Outcome = "invalid-signature"
	OutcomeReplayDetected    Outcome = "replay-detected"
	OutcomeVerificationError Outcome = "verification-error"
)

// OutcomeOf maps a Verify error to its outcome label.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, ErrMissingSignature):
		return OutcomeMissingSignature
	case errors.Is(err, ErrInvalidSignature):
		return OutcomeInvalidSignature
	case errors.Is(err, ErrReplayDetected):
		return OutcomeReplayDetected
	default:
		return OutcomeVerificationError
	}
}
