package accounts

import (
	"context"
	"fmt"
)

// Collection names for the record store.
const (
	ProfilesCollection      = "profiles"
	OrganizationsCollection = "organizations"
)

// PhoneProviderID identifies the phone second-factor provider when
// unlinking.
const PhoneProviderID = "phone"

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// User is a snapshot of the authenticated user held by the identity
// platform. It is read-only here; mutations go through the record store or
// the identity client.
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	PhotoURL      string `json:"photo_url,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
}

// Credential is the ephemeral result of a completed sign-in. It is consumed
// immediately by the caller and never stored.
type Credential struct {
	User      *User  `json:"user"`
	Provider  string `json:"provider,omitempty"`
	IsNewUser bool   `json:"is_new_user,omitempty"`
}

// AuthProvider selects a federated identity provider. Implementations are
// opaque to this package; only the identifier is inspected.
type AuthProvider interface {
	ProviderID() string
}

// ProviderID is the simplest AuthProvider: a bare identifier such as
// "google.com" or "github.com".
type ProviderID string

func (p ProviderID) ProviderID() string { return string(p) }

// PhoneChallenge is an in-progress phone number verification. The Session
// value is opaque provider state tying the confirmation to the original
// request.
type PhoneChallenge struct {
	Session     string `json:"session"`
	PhoneNumber string `json:"phone_number"`
}

// MFAChallenge carries the opaque state needed to complete a multi-factor
// sign-in. Hints are masked identifiers for the enrolled second factors.
type MFAChallenge struct {
	Session  string   `json:"session"`
	Provider string   `json:"provider,omitempty"`
	Hints    []string `json:"hints,omitempty"`
}

// IdentityClient is the external identity platform. All calls suspend until
// the platform responds; the platform owns timeouts and retries.
type IdentityClient interface {
	// CurrentUser returns the signed-in user, or nil when signed out.
	CurrentUser(ctx context.Context) (*User, error)

	// RedirectResult reports whether the current page load completed a
	// redirect-based sign-in. It returns (nil, nil) when it did not.
	RedirectResult(ctx context.Context) (*Credential, error)

	SignInWithPopup(ctx context.Context, provider AuthProvider) (*Credential, error)
	SignInWithRedirect(ctx context.Context, provider AuthProvider) error

	ReauthenticateWithPopup(ctx context.Context, user *User, provider AuthProvider) (*Credential, error)
	ReauthenticateWithRedirect(ctx context.Context, user *User, provider AuthProvider) error

	// IDToken returns a short-lived identity token for the user,
	// forcing a refresh when asked.
	IDToken(ctx context.Context, user *User, forceRefresh bool) (string, error)

	// Unlink detaches a linked provider from the user and returns the
	// updated user.
	Unlink(ctx context.Context, user *User, providerID string) (*User, error)

	StartPhoneVerification(ctx context.Context, user *User, phoneNumber string) (*PhoneChallenge, error)
	ConfirmPhoneVerification(ctx context.Context, challenge *PhoneChallenge, code string) (*Credential, error)

	// ResolveMFA completes a pending multi-factor challenge.
	ResolveMFA(ctx context.Context, challenge *MFAChallenge, code string) (*Credential, error)
}

// DocumentStore applies partial-merge updates to externally owned records.
// Fields not present in the map are left untouched.
type DocumentStore interface {
	UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) error
}

// BlobStore stores binary assets addressed by path. Delete returns an error
// satisfying errors.Is(err, ErrBlobNotFound) when the path does not exist.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, path string) (string, error)
	Delete(ctx context.Context, path string) error
}

// SessionEndpoint converts a provider identity token into a server
// recognized session artifact.
type SessionEndpoint interface {
	CreateSession(ctx context.Context, idToken string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
