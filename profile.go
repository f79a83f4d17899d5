package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ProfilePatch is a partial update to a profile record. Nil fields are left
// untouched; a pointer to the empty string clears the field.
type ProfilePatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// Validate checks the fields that are present.
func (p ProfilePatch) Validate() error {
	fields := []*validation.FieldRules{}
	if p.DisplayName != nil {
		fields = append(fields, validation.Field(&p.DisplayName, validation.Length(2, 0)))
	}
	return validation.ValidateStruct(&p, fields...)
}

func (p ProfilePatch) fields() map[string]any {
	fields := map[string]any{}
	if p.DisplayName != nil {
		fields["display_name"] = *p.DisplayName
	}
	if p.PhotoURL != nil {
		fields["photo_url"] = *p.PhotoURL
	}
	if p.PhoneNumber != nil {
		fields["phone_number"] = *p.PhoneNumber
	}
	return fields
}

// ProfileManager applies user-submitted updates to profile records and
// coordinates avatar replacement.
type ProfileManager struct {
	store  DocumentStore
	assets *AssetManager
	logger Logger
}

// ProfileOption configures a ProfileManager.
type ProfileOption func(*ProfileManager)

// WithProfileLogger sets the logger.
func WithProfileLogger(logger Logger) ProfileOption {
	return func(m *ProfileManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewProfileManager wires the record store and the asset pipeline.
func NewProfileManager(store DocumentStore, assets *AssetManager, opts ...ProfileOption) *ProfileManager {
	m := &ProfileManager{
		store:  store,
		assets: assets,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Update applies a partial update to the user's profile record.
func (m *ProfileManager) Update(ctx context.Context, userID string, patch ProfilePatch) error {
	if userID == "" {
		return ErrMissingRecordID
	}

	if err := patch.Validate(); err != nil {
		return err
	}

	fields := patch.fields()
	if len(fields) == 0 {
		m.logger.Debug("empty profile patch uid=%s", userID)
		return nil
	}

	return m.store.UpdateDocument(ctx, ProfilesCollection, userID, fields)
}

// ReplaceAvatar replaces (or, with a nil file, removes) the user's avatar,
// persisting the new reference on the profile record. notify receives the
// new URL, or nil on removal; it is skipped when any step fails.
func (m *ProfileManager) ReplaceAvatar(ctx context.Context, userID, currentURL string, file *AssetFile, notify func(url *string)) (string, error) {
	return m.assets.Replace(ctx, ReplaceAssetRequest{
		PathPrefix: ProfilesCollection,
		OwnerID:    userID,
		CurrentURL: currentURL,
		File:       file,
		Persist: func(ctx context.Context, url string) error {
			return m.Update(ctx, userID, ProfilePatch{PhotoURL: &url})
		},
		Notify: notify,
	})
}
