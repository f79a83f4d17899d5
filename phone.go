package accounts

import (
	"context"

	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse numbers entered without a country
// prefix.
const DefaultPhoneRegion = "US"

// PhoneLinker attaches a verified phone number to the signed-in user as a
// second factor, and detaches it again. Verification is a two step exchange
// with the identity platform: Link starts a challenge, Confirm completes it.
type PhoneLinker struct {
	client IdentityClient
	store  DocumentStore
	region string
	logger Logger
}

// PhoneOption configures a PhoneLinker.
type PhoneOption func(*PhoneLinker)

// WithPhoneRegion sets the default region for parsing national numbers.
func WithPhoneRegion(region string) PhoneOption {
	return func(l *PhoneLinker) {
		if region != "" {
			l.region = region
		}
	}
}

// WithPhoneLogger sets the logger.
func WithPhoneLogger(logger Logger) PhoneOption {
	return func(l *PhoneLinker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewPhoneLinker wires the identity client and the record store.
func NewPhoneLinker(client IdentityClient, store DocumentStore, opts ...PhoneOption) *PhoneLinker {
	l := &PhoneLinker{
		client: client,
		store:  store,
		region: DefaultPhoneRegion,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

// Link validates the number and starts a verification challenge for the
// signed-in user. The returned challenge is handed back to Confirm together
// with the code the user received.
func (l *PhoneLinker) Link(ctx context.Context, user *User, rawNumber string) (*PhoneChallenge, error) {
	if user == nil {
		return nil, ErrNoCurrentUser
	}

	number, err := l.normalize(rawNumber)
	if err != nil {
		return nil, err
	}

	challenge, err := l.client.StartPhoneVerification(ctx, user, number)
	if err != nil {
		return nil, wrapCollaboratorError(ErrChallengeFailed, "start_phone_verification", err)
	}

	l.logger.Debug("phone verification started uid=%s", user.UID)

	return challenge, nil
}

// Confirm completes a pending challenge with the received code and persists
// the verified number on the user's profile record.
func (l *PhoneLinker) Confirm(ctx context.Context, challenge *PhoneChallenge, code string) (*Credential, error) {
	if challenge == nil {
		return nil, ErrChallengeFailed
	}

	credential, err := l.client.ConfirmPhoneVerification(ctx, challenge, code)
	if err != nil {
		return nil, wrapCollaboratorError(ErrChallengeFailed, "confirm_phone_verification", err)
	}

	if credential != nil && credential.User != nil {
		fields := map[string]any{"phone_number": challenge.PhoneNumber}
		if err := l.store.UpdateDocument(ctx, ProfilesCollection, credential.User.UID, fields); err != nil {
			return nil, err
		}
	}

	return credential, nil
}

// Unlink detaches the phone factor from the user and clears the number on
// the profile record. A nil user is a no-op.
func (l *PhoneLinker) Unlink(ctx context.Context, user *User) error {
	if user == nil {
		l.logger.Debug("phone unlink skipped, no user signed in")
		return nil
	}

	updated, err := l.client.Unlink(ctx, user, PhoneProviderID)
	if err != nil {
		return wrapCollaboratorError(ErrChallengeFailed, "unlink_phone", err)
	}

	uid := user.UID
	if updated != nil {
		uid = updated.UID
	}

	return l.store.UpdateDocument(ctx, ProfilesCollection, uid, map[string]any{
		"phone_number": "",
	})
}

func (l *PhoneLinker) normalize(rawNumber string) (string, error) {
	parsed, err := phonenumbers.Parse(rawNumber, l.region)
	if err != nil {
		return "", wrapCollaboratorError(ErrInvalidPhoneNumber, "parse_phone_number", err)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", ErrInvalidPhoneNumber
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
