package signup

import "errors"

// ValidationKind tags failures detected locally, before any directory call.
type ValidationKind string

const (
	KindMissingFields       ValidationKind = "missing_fields"
	KindInvalidPhoneFormat  ValidationKind = "invalid_phone_format"
	KindMissingCode         ValidationKind = "missing_code"
	KindBotCheckUnavailable ValidationKind = "bot_check_unavailable"
	KindBotCheckRejected    ValidationKind = "bot_check_rejected"
)

type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RemoteKind tags failures surfaced from the identity directory.
type RemoteKind string

const (
	RemoteAccountExists RemoteKind = "account_already_exists"
	RemoteOther         RemoteKind = "other"
)

type RemoteError struct {
	Kind    RemoteKind
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

var (
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	ErrVerifyInFlight = errors.New("a verification is already in progress")
	ErrFormClosed     = errors.New("the form has been closed")
	ErrFormCompleted  = errors.New("the form has already completed")
	ErrFlowCompleted  = errors.New("the verification has already completed")

	// ErrMissingUsername blocks the verification flow when no username was
	// carried over from sign-up. There is no fallback identity.
	ErrMissingUsername = errors.New("no username provided, please restart from the sign-up form")
)
