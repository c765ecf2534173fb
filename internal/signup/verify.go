package signup

import (
	"context"
	"strings"
	"sync"
	"time"

	"sandboxsignup/internal/botcheck"
	"sandboxsignup/internal/directory"
)

type VerificationState string

const (
	StateAwaitingCode VerificationState = "awaiting_code"
	StateVerifying    VerificationState = "verifying"
	StateVerified     VerificationState = "verified"
)

// VerifyMode selects how the one-time code is redeemed. Confirm mode
// confirms a fresh registration; attribute mode verifies the phone number on
// an account the directory already considers confirmed. Which one is correct
// depends on how the target user pool is configured.
type VerifyMode string

const (
	ModeConfirmRegistration VerifyMode = "confirm_registration"
	ModeVerifyAttribute     VerifyMode = "verify_attribute"
)

// DefaultRedirectDelay gives the user time to read the confirmation before
// the hosted-login redirect, and the provider time to settle session state.
const DefaultRedirectDelay = 3 * time.Second

// Navigator performs the terminal full-page navigation.
type Navigator interface {
	Navigate(url string)
}

// Verification is the phone-verification state machine: AwaitingCode →
// Verifying → {Verified | back to AwaitingCode on failure}. Verified is
// terminal and schedules the redirect to the hosted login.
type Verification struct {
	mu      sync.Mutex
	state   VerificationState
	closed  bool
	message string
	lastErr error

	username      string
	mode          VerifyMode
	directory     directory.Client
	botcheck      botcheck.Provider
	loginURL      string
	redirectDelay time.Duration
	navigator     Navigator
	timer         *time.Timer
}

type VerificationOption func(*Verification)

func WithMode(mode VerifyMode) VerificationOption {
	return func(v *Verification) { v.mode = mode }
}

// WithResendBotCheck enables the optional bot check on resend requests.
func WithResendBotCheck(p botcheck.Provider) VerificationOption {
	return func(v *Verification) { v.botcheck = p }
}

func WithRedirect(nav Navigator, loginURL string, delay time.Duration) VerificationOption {
	return func(v *Verification) {
		v.navigator = nav
		v.loginURL = loginURL
		v.redirectDelay = delay
	}
}

// NewVerification requires the username carried over from a successful
// registration. Without one there is nothing to verify against and the flow
// refuses to start.
func NewVerification(dir directory.Client, username string, opts ...VerificationOption) (*Verification, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrMissingUsername
	}
	v := &Verification{
		state:         StateAwaitingCode,
		username:      username,
		mode:          ModeConfirmRegistration,
		directory:     dir,
		redirectDelay: DefaultRedirectDelay,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

type VerifyResult struct {
	Message       string
	LoginURL      string
	RedirectDelay time.Duration
}

// Verify redeems the one-time code. An empty code fails locally without a
// directory call; a remote failure is surfaced verbatim and the flow returns
// to AwaitingCode.
func (v *Verification) Verify(ctx context.Context, code string) (*VerifyResult, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, ErrFormClosed
	}
	switch v.state {
	case StateVerifying:
		v.mu.Unlock()
		return nil, ErrVerifyInFlight
	case StateVerified:
		v.mu.Unlock()
		return nil, ErrFlowCompleted
	}

	v.lastErr = nil
	v.message = ""

	if strings.TrimSpace(code) == "" {
		verr := &ValidationError{
			Kind:    KindMissingCode,
			Message: "Enter the verification code sent to your phone.",
		}
		v.lastErr = verr
		v.mu.Unlock()
		return nil, verr
	}

	v.state = StateVerifying
	username, mode := v.username, v.mode
	v.mu.Unlock()

	var err error
	if mode == ModeVerifyAttribute {
		err = v.directory.VerifyAttribute(ctx, username, "phone_number", code)
	} else {
		err = v.directory.ConfirmRegistration(ctx, username, code)
	}
	if err != nil {
		rerr := &RemoteError{Kind: RemoteOther, Message: err.Error()}
		v.mu.Lock()
		v.state = StateAwaitingCode
		v.lastErr = rerr
		v.mu.Unlock()
		return nil, rerr
	}

	v.mu.Lock()
	v.state = StateVerified
	v.message = "Phone verified successfully! Redirecting you to sign in."
	if v.navigator != nil {
		nav, url := v.navigator, v.loginURL
		v.timer = time.AfterFunc(v.redirectDelay, func() {
			v.mu.Lock()
			if v.closed {
				v.mu.Unlock()
				return
			}
			v.mu.Unlock()
			nav.Navigate(url)
		})
	}
	result := &VerifyResult{
		Message:       v.message,
		LoginURL:      v.loginURL,
		RedirectDelay: v.redirectDelay,
	}
	v.mu.Unlock()
	return result, nil
}

// Resend requests a fresh code. Each call is independent, reports its own
// banner message and leaves the flow state untouched. Rate limiting, if any,
// is the directory's concern.
func (v *Verification) Resend(ctx context.Context) (string, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return "", ErrFormClosed
	}
	username := v.username
	bc := v.botcheck
	v.mu.Unlock()

	if bc != nil {
		token, err := bc.Token(ctx, botcheck.ActionResendCode)
		if err != nil {
			return "", &ValidationError{
				Kind:    KindBotCheckUnavailable,
				Message: "The bot check is unavailable. Please try again later.",
			}
		}
		if token == "" {
			return "", &ValidationError{
				Kind:    KindBotCheckRejected,
				Message: "The bot check did not pass. Please try again.",
			}
		}
	}

	if err := v.directory.ResendConfirmationCode(ctx, username); err != nil {
		return "", &RemoteError{Kind: RemoteOther, Message: err.Error()}
	}
	return "A new verification code has been sent to your phone.", nil
}

// Close cancels a pending redirect timer; a timer that already fired finds
// the flow closed and must not navigate.
func (v *Verification) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
}

func (v *Verification) State() VerificationState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Verification) Username() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.username
}

func (v *Verification) Message() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

func (v *Verification) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}
