package accounts

import (
	"context"
	"sync"
	"sync/atomic"
)

type stubIdentity struct {
	currentUser    func(ctx context.Context) (*User, error)
	redirectResult func(ctx context.Context) (*Credential, error)
	popup          func(ctx context.Context, provider AuthProvider) (*Credential, error)
	redirect       func(ctx context.Context, provider AuthProvider) error
	reauthPopup    func(ctx context.Context, user *User, provider AuthProvider) (*Credential, error)
	reauthRedirect func(ctx context.Context, user *User, provider AuthProvider) error
	idToken        func(ctx context.Context, user *User, forceRefresh bool) (string, error)
	unlink         func(ctx context.Context, user *User, providerID string) (*User, error)
	phoneStart     func(ctx context.Context, user *User, phoneNumber string) (*PhoneChallenge, error)
	phoneConfirm   func(ctx context.Context, challenge *PhoneChallenge, code string) (*Credential, error)
	mfaResolve     func(ctx context.Context, challenge *MFAChallenge, code string) (*Credential, error)

	redirectResultCalls atomic.Int64
	idTokenCalls        atomic.Int64
}

func (s *stubIdentity) CurrentUser(ctx context.Context) (*User, error) {
	if s.currentUser == nil {
		return nil, nil
	}
	return s.currentUser(ctx)
}

func (s *stubIdentity) RedirectResult(ctx context.Context) (*Credential, error) {
	s.redirectResultCalls.Add(1)
	if s.redirectResult == nil {
		return nil, nil
	}
	return s.redirectResult(ctx)
}

func (s *stubIdentity) SignInWithPopup(ctx context.Context, provider AuthProvider) (*Credential, error) {
	return s.popup(ctx, provider)
}

func (s *stubIdentity) SignInWithRedirect(ctx context.Context, provider AuthProvider) error {
	return s.redirect(ctx, provider)
}

func (s *stubIdentity) ReauthenticateWithPopup(ctx context.Context, user *User, provider AuthProvider) (*Credential, error) {
	return s.reauthPopup(ctx, user, provider)
}

func (s *stubIdentity) ReauthenticateWithRedirect(ctx context.Context, user *User, provider AuthProvider) error {
	return s.reauthRedirect(ctx, user, provider)
}

func (s *stubIdentity) IDToken(ctx context.Context, user *User, forceRefresh bool) (string, error) {
	s.idTokenCalls.Add(1)
	if s.idToken == nil {
		return "id-token", nil
	}
	return s.idToken(ctx, user, forceRefresh)
}

func (s *stubIdentity) Unlink(ctx context.Context, user *User, providerID string) (*User, error) {
	return s.unlink(ctx, user, providerID)
}

func (s *stubIdentity) StartPhoneVerification(ctx context.Context, user *User, phoneNumber string) (*PhoneChallenge, error) {
	return s.phoneStart(ctx, user, phoneNumber)
}

func (s *stubIdentity) ConfirmPhoneVerification(ctx context.Context, challenge *PhoneChallenge, code string) (*Credential, error) {
	return s.phoneConfirm(ctx, challenge, code)
}

func (s *stubIdentity) ResolveMFA(ctx context.Context, challenge *MFAChallenge, code string) (*Credential, error) {
	return s.mfaResolve(ctx, challenge, code)
}

type stubDocumentStore struct {
	mu      sync.Mutex
	updates []documentUpdate
	err     error
}

type documentUpdate struct {
	collection string
	id         string
	fields     map[string]any
}

func (s *stubDocumentStore) UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, documentUpdate{collection: collection, id: id, fields: fields})
	return nil
}

func (s *stubDocumentStore) lastUpdate() (documentUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.updates) == 0 {
		return documentUpdate{}, false
	}
	return s.updates[len(s.updates)-1], true
}

type stubBlobStore struct {
	mu    sync.Mutex
	calls []string

	uploadErr   error
	downloadErr error
	deleteErr   error
	downloadURL string
}

func (s *stubBlobStore) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubBlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	s.record("upload:" + path)
	return s.uploadErr
}

func (s *stubBlobStore) DownloadURL(ctx context.Context, path string) (string, error) {
	s.record("download_url:" + path)
	if s.downloadErr != nil {
		return "", s.downloadErr
	}
	if s.downloadURL != "" {
		return s.downloadURL, nil
	}
	return "https://cdn.example.com/" + path, nil
}

func (s *stubBlobStore) Delete(ctx context.Context, path string) error {
	s.record("delete:" + path)
	return s.deleteErr
}

type testLogger struct{}

func (testLogger) Debug(format string, args ...any) {}
func (testLogger) Info(format string, args ...any)  {}
func (testLogger) Error(format string, args ...any) {}
