package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// SessionExchanger converts a freshly obtained credential into a server
// side session: it fetches a short-lived identity token (forcing a refresh)
// and posts it to the session-creation endpoint.
//
// At most one exchange is in flight per exchanger. A call arriving while
// one is running is dropped, not queued; once the running exchange settles,
// a subsequent call proceeds normally.
type SessionExchanger struct {
	client    IdentityClient
	endpoint  SessionEndpoint
	onSession func(user *User)
	logger    Logger

	inFlight atomic.Bool
}

// ExchangeOption configures a SessionExchanger.
type ExchangeOption func(*SessionExchanger)

// OnSession sets the callback invoked after the endpoint accepts the token.
// The exchanger never navigates; the callback owns what happens next.
func OnSession(fn func(user *User)) ExchangeOption {
	return func(e *SessionExchanger) {
		e.onSession = fn
	}
}

// WithExchangeLogger sets the logger.
func WithExchangeLogger(logger Logger) ExchangeOption {
	return func(e *SessionExchanger) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewSessionExchanger wires the identity client to the session endpoint.
func NewSessionExchanger(client IdentityClient, endpoint SessionEndpoint, opts ...ExchangeOption) *SessionExchanger {
	e := &SessionExchanger{
		client:   client,
		endpoint: endpoint,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// Exchange mints a session for the user. It is a no-op when another
// exchange is already in flight.
func (e *SessionExchanger) Exchange(ctx context.Context, user *User) error {
	if user == nil {
		return ErrNoCurrentUser
	}

	if !e.inFlight.CompareAndSwap(false, true) {
		e.logger.Debug("session exchange already in flight, dropping call uid=%s", user.UID)
		return nil
	}
	defer e.inFlight.Store(false)

	idToken, err := e.client.IDToken(ctx, user, true)
	if err != nil {
		return wrapCollaboratorError(ErrIDTokenFailed, "id_token", err)
	}

	if err := e.endpoint.CreateSession(ctx, idToken); err != nil {
		return wrapCollaboratorError(ErrSessionCreateFailed, "create_session", err)
	}

	e.logger.Info("session created uid=%s", user.UID)

	if e.onSession != nil {
		e.onSession(user)
	}

	return nil
}

// HTTPSessionEndpoint posts identity tokens to a session-creation URL.
type HTTPSessionEndpoint struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSessionEndpoint creates the endpoint client. A nil httpClient gets
// a 10 second timeout default.
func NewHTTPSessionEndpoint(url string, httpClient *http.Client) *HTTPSessionEndpoint {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &HTTPSessionEndpoint{
		url:        url,
		httpClient: httpClient,
	}
}

// CreateSession implements SessionEndpoint.
func (s *HTTPSessionEndpoint) CreateSession(ctx context.Context, idToken string) error {
	body, err := json.Marshal(map[string]string{"id_token": idToken})
	if err != nil {
		return fmt.Errorf("failed to encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("session endpoint returned %d: %s", resp.StatusCode, string(payload))
	}

	return nil
}
