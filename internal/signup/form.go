package signup

import (
	"context"
	"errors"
	"sync"
	"time"

	"sandboxsignup/internal/botcheck"
	"sandboxsignup/internal/directory"
)

type FormState string

const (
	StateEditing    FormState = "editing"
	StateSubmitting FormState = "submitting"
	StateSucceeded  FormState = "succeeded"
)

// DefaultHandoffDelay keeps the success message readable before the form
// hands off to phone verification.
const DefaultHandoffDelay = 5 * time.Second

const accountExistsMessage = "An account with this email already exists. Please sign in instead."

// Form is the registration state machine: Editing → Submitting →
// {Succeeded | back to Editing on failure}. Succeeded is terminal. The
// Submitting state doubles as the in-flight guard, so at most one
// account-creation call is ever issued per instance.
type Form struct {
	mu       sync.Mutex
	state    FormState
	closed   bool
	username string
	message  string
	lastErr  error

	directory    directory.Client
	botcheck     botcheck.Provider
	handoffDelay time.Duration
	onHandoff    func(username string)
	timer        *time.Timer
}

type FormOption func(*Form)

// WithHandoff registers the callback fired once the success message has been
// displayed for the configured delay.
func WithHandoff(fn func(username string)) FormOption {
	return func(f *Form) { f.onHandoff = fn }
}

func WithHandoffDelay(d time.Duration) FormOption {
	return func(f *Form) { f.handoffDelay = d }
}

func NewForm(dir directory.Client, bc botcheck.Provider, opts ...FormOption) *Form {
	f := &Form{
		state:        StateEditing,
		directory:    dir,
		botcheck:     bc,
		handoffDelay: DefaultHandoffDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type SubmitResult struct {
	Account      *directory.Account
	Username     string
	Message      string
	HandoffDelay time.Duration
}

// Submit validates the draft, obtains a bot-check token and issues exactly
// one account-creation call. Validation failures and bot-check failures
// return the form to Editing without contacting the directory. Re-entrant
// calls while a submission is pending are rejected without side effects.
func (f *Form) Submit(ctx context.Context, draft *Draft) (*SubmitResult, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFormClosed
	}
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return nil, ErrSubmitInFlight
	case StateSucceeded:
		f.mu.Unlock()
		return nil, ErrFormCompleted
	}

	// A fresh attempt replaces whatever error the previous one left behind.
	f.lastErr = nil
	f.message = ""

	if err := draft.Validate(); err != nil {
		f.lastErr = err
		f.mu.Unlock()
		return nil, err
	}

	f.state = StateSubmitting
	f.mu.Unlock()

	// The bot check completes, success or failure, before the directory is
	// ever contacted.
	token, err := f.botcheck.Token(ctx, botcheck.ActionSignup)
	if err != nil {
		verr := &ValidationError{
			Kind:    KindBotCheckUnavailable,
			Message: "The bot check is unavailable. Please try again later.",
		}
		f.fail(verr)
		return nil, verr
	}
	if token == "" {
		verr := &ValidationError{
			Kind:    KindBotCheckRejected,
			Message: "The bot check did not pass. Please try again.",
		}
		f.fail(verr)
		return nil, verr
	}

	account, err := f.directory.CreateAccount(ctx, directory.CreateAccountInput{
		Username:   draft.Email,
		Password:   draft.Password,
		Attributes: draft.Attributes(),
	})
	if err != nil {
		rerr := remoteError(err)
		f.fail(rerr)
		return nil, rerr
	}

	f.mu.Lock()
	f.state = StateSucceeded
	f.username = account.Username
	f.message = "Account created. A verification code has been sent to your phone."
	if f.onHandoff != nil {
		fn := f.onHandoff
		f.timer = time.AfterFunc(f.handoffDelay, func() {
			f.mu.Lock()
			if f.closed {
				f.mu.Unlock()
				return
			}
			username := f.username
			f.mu.Unlock()
			fn(username)
		})
	}
	result := &SubmitResult{
		Account:      account,
		Username:     f.username,
		Message:      f.message,
		HandoffDelay: f.handoffDelay,
	}
	f.mu.Unlock()
	return result, nil
}

// Close tears the form down. A pending hand-off timer is cancelled and a
// timer that already fired will find the form closed and do nothing.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username
}

func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Form) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateEditing
	f.lastErr = err
}

func remoteError(err error) *RemoteError {
	if errors.Is(err, directory.ErrAccountExists) {
		return &RemoteError{Kind: RemoteAccountExists, Message: accountExistsMessage}
	}
	return &RemoteError{Kind: RemoteOther, Message: err.Error()}
}
