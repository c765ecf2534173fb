package directory

import (
	"context"
	"errors"
)

// Client is the identity-directory contract the sign-up flows run against.
// The production implementation targets a hosted Cognito user pool; the dev
// pool implementation backs the same contract with a local database.
type Client interface {
	// CreateAccount registers a new, unconfirmed account. The username is the
	// registration email; attributes carry the flattened profile.
	CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error)

	// ConfirmRegistration redeems the one-time code delivered at sign-up and
	// confirms the account so it can authenticate.
	ConfirmRegistration(ctx context.Context, username, code string) error

	// ResendConfirmationCode issues a fresh one-time code for an unconfirmed
	// account.
	ResendConfirmationCode(ctx context.Context, username string) error

	// VerifyAttribute redeems a one-time code against a single attribute
	// (phone_number) of an already-confirmed account.
	VerifyAttribute(ctx context.Context, username, attribute, code string) error
}

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CreateAccountInput struct {
	Username   string
	Password   string
	Attributes []Attribute
}

type Account struct {
	Username  string `json:"username"`
	Sub       string `json:"sub"`
	Confirmed bool   `json:"confirmed"`
}

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrCodeMismatch       = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrResendCooldown     = errors.New("a code was sent recently, wait before requesting another")
	ErrNotConfirmed       = errors.New("account is not confirmed")
	ErrAlreadyConfirmed   = errors.New("account is already confirmed")
	ErrUnsupportedVerify  = errors.New("attribute verification is not supported by this directory")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
