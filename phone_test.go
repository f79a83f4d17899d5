package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhoneLinkStartsVerification(t *testing.T) {
	var requested string
	client := &stubIdentity{
		phoneStart: func(ctx context.Context, user *User, phoneNumber string) (*PhoneChallenge, error) {
			requested = phoneNumber
			return &PhoneChallenge{Session: "verify-1", PhoneNumber: phoneNumber}, nil
		},
	}

	linker := NewPhoneLinker(client, &stubDocumentStore{}, WithPhoneLogger(testLogger{}))

	challenge, err := linker.Link(context.Background(), &User{UID: "user-1"}, "(202) 555-0143")
	require.NoError(t, err)
	assert.Equal(t, "verify-1", challenge.Session)
	assert.Equal(t, "+12025550143", requested)
}

func TestPhoneLinkRegionAwareParsing(t *testing.T) {
	client := &stubIdentity{
		phoneStart: func(ctx context.Context, user *User, phoneNumber string) (*PhoneChallenge, error) {
			return &PhoneChallenge{Session: "verify-1", PhoneNumber: phoneNumber}, nil
		},
	}

	linker := NewPhoneLinker(client, &stubDocumentStore{},
		WithPhoneRegion("GB"),
		WithPhoneLogger(testLogger{}),
	)

	challenge, err := linker.Link(context.Background(), &User{UID: "user-1"}, "020 7946 0958")
	require.NoError(t, err)
	assert.Equal(t, "+442079460958", challenge.PhoneNumber)
}

func TestPhoneLinkRejectsInvalidNumber(t *testing.T) {
	linker := NewPhoneLinker(&stubIdentity{}, &stubDocumentStore{}, WithPhoneLogger(testLogger{}))

	_, err := linker.Link(context.Background(), &User{UID: "user-1"}, "555-01")
	require.Error(t, err)
	assert.Equal(t, TextCodeInvalidPhone, ErrorCode(err))
}

func TestPhoneLinkRequiresUser(t *testing.T) {
	linker := NewPhoneLinker(&stubIdentity{}, &stubDocumentStore{}, WithPhoneLogger(testLogger{}))

	_, err := linker.Link(context.Background(), nil, "+12025550143")
	require.Error(t, err)
	assert.Equal(t, TextCodeNoCurrentUser, ErrorCode(err))
}

func TestPhoneConfirmPersistsNumber(t *testing.T) {
	client := &stubIdentity{
		phoneConfirm: func(ctx context.Context, challenge *PhoneChallenge, code string) (*Credential, error) {
			assert.Equal(t, "123456", code)
			return &Credential{User: &User{UID: "user-1", PhoneNumber: challenge.PhoneNumber}}, nil
		},
	}
	store := &stubDocumentStore{}

	linker := NewPhoneLinker(client, store, WithPhoneLogger(testLogger{}))

	credential, err := linker.Confirm(context.Background(), &PhoneChallenge{
		Session:     "verify-1",
		PhoneNumber: "+12025550143",
	}, "123456")
	require.NoError(t, err)
	require.NotNil(t, credential)

	update, ok := store.lastUpdate()
	require.True(t, ok)
	assert.Equal(t, ProfilesCollection, update.collection)
	assert.Equal(t, "user-1", update.id)
	assert.Equal(t, map[string]any{"phone_number": "+12025550143"}, update.fields)
}

func TestPhoneConfirmFailure(t *testing.T) {
	client := &stubIdentity{
		phoneConfirm: func(ctx context.Context, challenge *PhoneChallenge, code string) (*Credential, error) {
			return nil, errors.New("wrong code")
		},
	}

	linker := NewPhoneLinker(client, &stubDocumentStore{}, WithPhoneLogger(testLogger{}))

	_, err := linker.Confirm(context.Background(), &PhoneChallenge{Session: "verify-1"}, "000000")
	require.Error(t, err)
	assert.Equal(t, TextCodeChallengeFailed, ErrorCode(err))
}

func TestPhoneUnlinkClearsNumber(t *testing.T) {
	client := &stubIdentity{
		unlink: func(ctx context.Context, user *User, providerID string) (*User, error) {
			assert.Equal(t, PhoneProviderID, providerID)
			return &User{UID: user.UID}, nil
		},
	}
	store := &stubDocumentStore{}

	linker := NewPhoneLinker(client, store, WithPhoneLogger(testLogger{}))

	err := linker.Unlink(context.Background(), &User{UID: "user-1", PhoneNumber: "+12025550143"})
	require.NoError(t, err)

	update, ok := store.lastUpdate()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"phone_number": ""}, update.fields)
}

func TestPhoneUnlinkWithoutUserIsNoop(t *testing.T) {
	store := &stubDocumentStore{}
	linker := NewPhoneLinker(&stubIdentity{}, store, WithPhoneLogger(testLogger{}))

	err := linker.Unlink(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, store.updates)
}
