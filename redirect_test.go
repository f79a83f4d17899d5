package accounts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirectCheckSignedIn(t *testing.T) {
	client := &stubIdentity{
		redirectResult: func(ctx context.Context) (*Credential, error) {
			return &Credential{
				User:     &User{UID: "user-1", Email: "person@example.com"},
				Provider: "google.com",
			}, nil
		},
	}

	var signedInUser *User
	rc := NewRedirectCompletion(client,
		OnSignIn(func(ctx context.Context, user *User) error {
			signedInUser = user
			return nil
		}),
		WithRedirectLogger(testLogger{}),
	)

	outcome, err := rc.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.SignedIn)
	require.NotNil(t, signedInUser)
	assert.Equal(t, "user-1", signedInUser.UID)
	assert.True(t, rc.Pending())
}

func TestRedirectCheckNoRedirect(t *testing.T) {
	client := &stubIdentity{}

	rc := NewRedirectCompletion(client, WithRedirectLogger(testLogger{}))

	outcome, err := rc.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.SignedIn)
	assert.False(t, rc.Pending())
}

func TestRedirectCheckRunsOnce(t *testing.T) {
	release := make(chan struct{})
	client := &stubIdentity{
		redirectResult: func(ctx context.Context) (*Credential, error) {
			<-release
			return &Credential{User: &User{UID: "user-1"}}, nil
		},
	}

	var callbacks atomic.Int64
	rc := NewRedirectCompletion(client,
		OnSignIn(func(ctx context.Context, user *User) error {
			callbacks.Add(1)
			return nil
		}),
		WithRedirectLogger(testLogger{}),
	)

	const waiters = 16

	var wg sync.WaitGroup
	outcomes := make([]RedirectOutcome, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := rc.Check(context.Background())
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), client.redirectResultCalls.Load())
	assert.Equal(t, int64(1), callbacks.Load())
	for _, outcome := range outcomes {
		assert.True(t, outcome.SignedIn)
	}

	// memoized: a later call does not touch the client again
	outcome, err := rc.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.SignedIn)
	assert.Equal(t, int64(1), client.redirectResultCalls.Load())
}

func TestRedirectCheckWaiterCancellation(t *testing.T) {
	release := make(chan struct{})
	client := &stubIdentity{
		redirectResult: func(ctx context.Context) (*Credential, error) {
			<-release
			return &Credential{User: &User{UID: "user-1"}}, nil
		},
	}

	rc := NewRedirectCompletion(client, WithRedirectLogger(testLogger{}))

	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		_, err := rc.Check(ctx)
		errs <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	require.ErrorIs(t, <-errs, context.Canceled)

	// the flight keeps going and resolves for later callers
	close(release)

	outcome, err := rc.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.SignedIn)
	assert.Equal(t, int64(1), client.redirectResultCalls.Load())
}

func TestRedirectCheckQueryFailure(t *testing.T) {
	boom := errors.New("network down")
	client := &stubIdentity{
		redirectResult: func(ctx context.Context) (*Credential, error) {
			return nil, boom
		},
	}

	var reported error
	rc := NewRedirectCompletion(client,
		OnRedirectError(func(err error) {
			reported = err
		}),
		WithRedirectLogger(testLogger{}),
	)

	outcome, err := rc.Check(context.Background())
	require.Error(t, err)
	assert.False(t, outcome.SignedIn)
	assert.Equal(t, TextCodeRedirectFailed, ErrorCode(err))
	require.NotNil(t, reported)
	assert.Equal(t, TextCodeRedirectFailed, ErrorCode(reported))

	// the failure is final, not retried
	_, _ = rc.Check(context.Background())
	assert.Equal(t, int64(1), client.redirectResultCalls.Load())
	assert.False(t, rc.Pending())
}

func TestRedirectCheckCallbackFailure(t *testing.T) {
	client := &stubIdentity{
		redirectResult: func(ctx context.Context) (*Credential, error) {
			return &Credential{User: &User{UID: "user-1"}}, nil
		},
	}

	boom := errors.New("session exchange failed")
	rc := NewRedirectCompletion(client,
		OnSignIn(func(ctx context.Context, user *User) error {
			return boom
		}),
		WithRedirectLogger(testLogger{}),
	)

	outcome, err := rc.Check(context.Background())
	require.Error(t, err)
	assert.True(t, outcome.SignedIn)
	assert.ErrorIs(t, err, boom)
}
