package accounts

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

const redirectCheckKey = "redirect-result"

// RedirectOutcome is the broadcast result of the one-shot redirect check.
type RedirectOutcome struct {
	// SignedIn is true when the page load completed a redirect sign-in
	// and the OnSignIn callback ran.
	SignedIn bool

	// Err carries the redirect-check or OnSignIn failure, if any. It is
	// the same value every waiter observes.
	Err error
}

// RedirectCompletion determines, once per process, whether the current page
// load resulted from a completed redirect-based sign-in, and broadcasts the
// outcome to every waiter.
//
// Any number of concurrent callers may invoke Check; the external
// RedirectResult query fires exactly once. Concurrent callers join the
// in-flight check, later callers get the memoized outcome. Cancelling a
// waiter's context abandons its wait without cancelling the in-flight
// query, which always runs to completion or failure.
type RedirectCompletion struct {
	client   IdentityClient
	onSignIn func(ctx context.Context, user *User) error
	onError  func(err error)
	logger   Logger

	group singleflight.Group

	mu      sync.Mutex
	done    bool
	outcome RedirectOutcome
}

// RedirectOption configures a RedirectCompletion.
type RedirectOption func(*RedirectCompletion)

// OnSignIn sets the callback invoked exactly once when the redirect check
// yields a credential. The check waits for it; its error becomes part of
// the broadcast outcome.
func OnSignIn(fn func(ctx context.Context, user *User) error) RedirectOption {
	return func(rc *RedirectCompletion) {
		rc.onSignIn = fn
	}
}

// OnRedirectError sets the callback invoked exactly once when the
// redirect-result query itself fails. The failure is not retried; the page
// then behaves as if no redirect sign-in occurred.
func OnRedirectError(fn func(err error)) RedirectOption {
	return func(rc *RedirectCompletion) {
		rc.onError = fn
	}
}

// WithRedirectLogger sets the logger.
func WithRedirectLogger(logger Logger) RedirectOption {
	return func(rc *RedirectCompletion) {
		if logger != nil {
			rc.logger = logger
		}
	}
}

// NewRedirectCompletion creates the one-shot redirect check around an
// identity client.
func NewRedirectCompletion(client IdentityClient, opts ...RedirectOption) *RedirectCompletion {
	rc := &RedirectCompletion{
		client: client,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(rc)
		}
	}

	return rc
}

// Check resolves the redirect outcome for this process, performing the
// external query at most once. It blocks until the check completes or ctx
// is cancelled; cancellation abandons only this caller's wait.
func (rc *RedirectCompletion) Check(ctx context.Context) (RedirectOutcome, error) {
	rc.mu.Lock()
	if rc.done {
		outcome := rc.outcome
		rc.mu.Unlock()
		return outcome, outcome.Err
	}
	rc.mu.Unlock()

	ch := rc.group.DoChan(redirectCheckKey, func() (any, error) {
		return rc.perform(context.WithoutCancel(ctx)), nil
	})

	select {
	case <-ctx.Done():
		return RedirectOutcome{}, ctx.Err()
	case res := <-ch:
		outcome := res.Val.(RedirectOutcome)
		return outcome, outcome.Err
	}
}

// Pending reports the render-time decision: true while the check has not
// resolved, or resolved with a successful sign-in (the caller keeps its
// loading affordance up through navigation); false once the check resolved
// with no credential.
func (rc *RedirectCompletion) Pending() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return !rc.done || rc.outcome.SignedIn
}

// perform runs the external query once and records the broadcast outcome.
// It executes inside the single flight, detached from any waiter's context.
func (rc *RedirectCompletion) perform(ctx context.Context) RedirectOutcome {
	// a flight started after the outcome was recorded must not re-query
	rc.mu.Lock()
	if rc.done {
		outcome := rc.outcome
		rc.mu.Unlock()
		return outcome
	}
	rc.mu.Unlock()

	credential, err := rc.client.RedirectResult(ctx)
	if err != nil {
		rc.logger.Error("redirect result query failed: %v", err)
		wrapped := wrapCollaboratorError(ErrRedirectCheckFailed, "redirect_result", err)
		if rc.onError != nil {
			rc.onError(wrapped)
		}
		// a failed query behaves like "no redirect sign-in"
		return rc.record(RedirectOutcome{SignedIn: false, Err: wrapped})
	}

	if credential == nil || credential.User == nil {
		rc.logger.Debug("no redirect sign-in for this page load")
		return rc.record(RedirectOutcome{SignedIn: false})
	}

	if rc.onSignIn != nil {
		if err := rc.onSignIn(ctx, credential.User); err != nil {
			rc.logger.Error("redirect sign-in callback failed: %v", err)
			return rc.record(RedirectOutcome{SignedIn: true, Err: err})
		}
	}

	return rc.record(RedirectOutcome{SignedIn: true})
}

func (rc *RedirectCompletion) record(outcome RedirectOutcome) RedirectOutcome {
	rc.mu.Lock()
	rc.done = true
	rc.outcome = outcome
	rc.mu.Unlock()
	return outcome
}
