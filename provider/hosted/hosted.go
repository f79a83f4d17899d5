// Package hosted implements the identity client against a hosted identity
// platform's REST API.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultSessionPath        = "/v1/session/user"
	defaultRedirectResultPath = "/v1/session/redirect-result"
	defaultSignInPath         = "/v1/signin"
	defaultReauthPath         = "/v1/reauth"
	defaultTokenPath          = "/v1/token"
	defaultUnlinkPath         = "/v1/users/unlink"
	defaultPhoneStartPath     = "/v1/phone/start"
	defaultPhoneConfirmPath   = "/v1/phone/confirm"
	defaultMFAResolvePath     = "/v1/mfa/resolve"
)

// Config holds the hosted identity platform configuration.
type Config struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

// Client implements accounts.IdentityClient over the platform's REST API.
type Client struct {
	config     Config
	httpClient *http.Client
}

var _ accounts.IdentityClient = (*Client)(nil)

// New creates a new hosted identity client.
func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config:     cfg,
		httpClient: client,
	}
}

// CurrentUser implements accounts.IdentityClient.
func (c *Client) CurrentUser(ctx context.Context) (*accounts.User, error) {
	var user accounts.User
	found, err := c.do(ctx, http.MethodGet, defaultSessionPath, nil, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// RedirectResult implements accounts.IdentityClient. It returns (nil, nil)
// when the current session did not originate from a redirect sign-in.
func (c *Client) RedirectResult(ctx context.Context) (*accounts.Credential, error) {
	var credential accounts.Credential
	found, err := c.do(ctx, http.MethodGet, defaultRedirectResultPath, nil, &credential)
	if err != nil {
		return nil, err
	}
	if !found || credential.User == nil {
		return nil, nil
	}
	return &credential, nil
}

// SignInWithPopup implements accounts.IdentityClient.
func (c *Client) SignInWithPopup(ctx context.Context, provider accounts.AuthProvider) (*accounts.Credential, error) {
	return c.credentialRequest(ctx, defaultSignInPath+"/popup", map[string]any{
		"provider": provider.ProviderID(),
	})
}

// SignInWithRedirect implements accounts.IdentityClient.
func (c *Client) SignInWithRedirect(ctx context.Context, provider accounts.AuthProvider) error {
	_, err := c.do(ctx, http.MethodPost, defaultSignInPath+"/redirect", map[string]any{
		"provider": provider.ProviderID(),
	}, nil)
	return err
}

// ReauthenticateWithPopup implements accounts.IdentityClient.
func (c *Client) ReauthenticateWithPopup(ctx context.Context, user *accounts.User, provider accounts.AuthProvider) (*accounts.Credential, error) {
	return c.credentialRequest(ctx, defaultReauthPath+"/popup", map[string]any{
		"provider": provider.ProviderID(),
		"uid":      user.UID,
	})
}

// ReauthenticateWithRedirect implements accounts.IdentityClient.
func (c *Client) ReauthenticateWithRedirect(ctx context.Context, user *accounts.User, provider accounts.AuthProvider) error {
	_, err := c.do(ctx, http.MethodPost, defaultReauthPath+"/redirect", map[string]any{
		"provider": provider.ProviderID(),
		"uid":      user.UID,
	}, nil)
	return err
}

// IDToken implements accounts.IdentityClient.
func (c *Client) IDToken(ctx context.Context, user *accounts.User, forceRefresh bool) (string, error) {
	var resp struct {
		IDToken string `json:"id_token"`
	}

	_, err := c.do(ctx, http.MethodPost, defaultTokenPath, map[string]any{
		"uid":           user.UID,
		"force_refresh": forceRefresh,
	}, &resp)
	if err != nil {
		return "", err
	}

	if resp.IDToken == "" {
		return "", goerrors.New("missing id token in response", goerrors.CategoryAuth)
	}

	return resp.IDToken, nil
}

// Unlink implements accounts.IdentityClient.
func (c *Client) Unlink(ctx context.Context, user *accounts.User, providerID string) (*accounts.User, error) {
	var updated accounts.User
	_, err := c.do(ctx, http.MethodPost, defaultUnlinkPath, map[string]any{
		"uid":         user.UID,
		"provider_id": providerID,
	}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// StartPhoneVerification implements accounts.IdentityClient.
func (c *Client) StartPhoneVerification(ctx context.Context, user *accounts.User, phoneNumber string) (*accounts.PhoneChallenge, error) {
	var challenge accounts.PhoneChallenge
	_, err := c.do(ctx, http.MethodPost, defaultPhoneStartPath, map[string]any{
		"uid":          user.UID,
		"phone_number": phoneNumber,
	}, &challenge)
	if err != nil {
		return nil, err
	}

	if challenge.PhoneNumber == "" {
		challenge.PhoneNumber = phoneNumber
	}

	return &challenge, nil
}

// ConfirmPhoneVerification implements accounts.IdentityClient.
func (c *Client) ConfirmPhoneVerification(ctx context.Context, challenge *accounts.PhoneChallenge, code string) (*accounts.Credential, error) {
	return c.credentialRequest(ctx, defaultPhoneConfirmPath, map[string]any{
		"session":      challenge.Session,
		"phone_number": challenge.PhoneNumber,
		"code":         code,
	})
}

// ResolveMFA implements accounts.IdentityClient.
func (c *Client) ResolveMFA(ctx context.Context, challenge *accounts.MFAChallenge, code string) (*accounts.Credential, error) {
	return c.credentialRequest(ctx, defaultMFAResolvePath, map[string]any{
		"session": challenge.Session,
		"code":    code,
	})
}

func (c *Client) credentialRequest(ctx context.Context, path string, payload map[string]any) (*accounts.Credential, error) {
	var credential accounts.Credential
	_, err := c.do(ctx, http.MethodPost, path, payload, &credential)
	if err != nil {
		return nil, err
	}
	return &credential, nil
}

// do performs a request against the platform API. It reports false when the
// platform answered with no content or not found, which callers treat as an
// absent resource rather than an error.
func (c *Client) do(ctx context.Context, method, path string, payload map[string]any, out any) (bool, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return false, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return false, err
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, err
	}

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, c.apiError(path, resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode platform response")
		}
	}

	return true, nil
}

type apiErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	MFA         *struct {
		Session  string   `json:"session"`
		Provider string   `json:"provider"`
		Hints    []string `json:"hints"`
	} `json:"mfa,omitempty"`
}

// apiError maps platform error payloads to errors. A second factor demand
// becomes an accounts.MFARequiredError carrying the challenge.
func (c *Client) apiError(path string, status int, raw []byte) error {
	var payload apiErrorResponse
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error == "mfa_required" && payload.MFA != nil {
			return &accounts.MFARequiredError{
				Challenge: &accounts.MFAChallenge{
					Session:  payload.MFA.Session,
					Provider: payload.MFA.Provider,
					Hints:    payload.MFA.Hints,
				},
			}
		}

		if payload.Error != "" {
			message := payload.Error
			if payload.Description != "" {
				message += ": " + payload.Description
			}
			return goerrors.New(message, goerrors.CategoryAuth).
				WithMetadata(map[string]any{
					"path":   path,
					"status": status,
				})
		}
	}

	message := strings.TrimSpace(string(raw))
	if message == "" {
		message = "platform request failed"
	}

	return goerrors.New(message, goerrors.CategoryAuth).
		WithMetadata(map[string]any{
			"path":   path,
			"status": status,
		})
}
