package accounts

import (
	"context"
	"fmt"
)

// Strategy selects how an interactive sign-in is performed. It is always an
// explicit parameter; there is no hidden global default.
type Strategy int

const (
	// StrategyPopup resolves the sign-in within the current page load.
	StrategyPopup Strategy = iota
	// StrategyRedirect navigates away; completion is observed later
	// through RedirectCompletion.
	StrategyRedirect
)

func (s Strategy) String() string {
	switch s {
	case StrategyPopup:
		return "popup"
	case StrategyRedirect:
		return "redirect"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration value to a Strategy.
func ParseStrategy(value string) (Strategy, error) {
	switch value {
	case "", "popup":
		return StrategyPopup, nil
	case "redirect":
		return StrategyRedirect, nil
	default:
		return StrategyPopup, fmt.Errorf("unknown sign-in strategy %q", value)
	}
}

// SignInOutcome is the explicit result of a sign-in trigger. Exactly one of
// the branches holds:
//   - Credential set: popup strategy resolved with a signed-in user.
//   - Redirected true: redirect strategy navigated away; no credential is
//     available at this call site.
type SignInOutcome struct {
	Credential *Credential
	Redirected bool
}

// SignInTrigger starts interactive sign-in (or re-authentication when a
// session already exists) against a chosen federated provider.
type SignInTrigger struct {
	client   IdentityClient
	strategy Strategy
	logger   Logger
}

// SignInOption configures a SignInTrigger.
type SignInOption func(*SignInTrigger)

// WithSignInLogger sets the logger.
func WithSignInLogger(logger Logger) SignInOption {
	return func(t *SignInTrigger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewSignInTrigger creates a trigger bound to one strategy.
func NewSignInTrigger(client IdentityClient, strategy Strategy, opts ...SignInOption) *SignInTrigger {
	t := &SignInTrigger{
		client:   client,
		strategy: strategy,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	return t
}

// Strategy returns the configured strategy.
func (t *SignInTrigger) Strategy() Strategy {
	return t.strategy
}

// SignIn starts the interactive flow for the provider. Whether this is a
// fresh sign-in or a re-authentication is decided here by inspecting the
// current session state, not by the caller.
//
// A multi-factor requirement surfaces as *MFARequiredError; every other
// failure is a terminal sign-in error.
func (t *SignInTrigger) SignIn(ctx context.Context, provider AuthProvider) (*SignInOutcome, error) {
	if provider == nil {
		return nil, wrapCollaboratorError(ErrSignInFailed, "sign_in", fmt.Errorf("provider is required"))
	}

	current, err := t.client.CurrentUser(ctx)
	if err != nil {
		return nil, wrapCollaboratorError(ErrSignInFailed, "current_user", err)
	}

	if current != nil {
		return t.reauthenticate(ctx, current, provider)
	}

	switch t.strategy {
	case StrategyRedirect:
		t.logger.Debug("sign in with redirect provider=%s", provider.ProviderID())
		if err := t.client.SignInWithRedirect(ctx, provider); err != nil {
			return nil, t.classify(provider, "sign_in_redirect", err)
		}
		return &SignInOutcome{Redirected: true}, nil
	default:
		t.logger.Debug("sign in with popup provider=%s", provider.ProviderID())
		credential, err := t.client.SignInWithPopup(ctx, provider)
		if err != nil {
			return nil, t.classify(provider, "sign_in_popup", err)
		}
		return &SignInOutcome{Credential: credential}, nil
	}
}

func (t *SignInTrigger) reauthenticate(ctx context.Context, user *User, provider AuthProvider) (*SignInOutcome, error) {
	switch t.strategy {
	case StrategyRedirect:
		t.logger.Debug("reauthenticate with redirect provider=%s uid=%s", provider.ProviderID(), user.UID)
		if err := t.client.ReauthenticateWithRedirect(ctx, user, provider); err != nil {
			return nil, t.classify(provider, "reauthenticate_redirect", err)
		}
		return &SignInOutcome{Redirected: true}, nil
	default:
		t.logger.Debug("reauthenticate with popup provider=%s uid=%s", provider.ProviderID(), user.UID)
		credential, err := t.client.ReauthenticateWithPopup(ctx, user, provider)
		if err != nil {
			return nil, t.classify(provider, "reauthenticate_popup", err)
		}
		return &SignInOutcome{Credential: credential}, nil
	}
}

// classify keeps the MFA-required variant intact and wraps everything else
// as a terminal sign-in failure.
func (t *SignInTrigger) classify(provider AuthProvider, operation string, err error) error {
	if IsMFARequired(err) {
		return err
	}
	t.logger.Error("sign in failed provider=%s op=%s: %v", provider.ProviderID(), operation, err)
	return wrapCollaboratorError(ErrSignInFailed, operation, err)
}
