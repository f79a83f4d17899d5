package accounts

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
)

// OrganizationPatch is a partial update to an organization record.
type OrganizationPatch struct {
	Name     *string `json:"name,omitempty"`
	LogoURL  *string `json:"logo_url,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
}

// Validate checks the fields that are present. A present name must not be
// empty.
func (p OrganizationPatch) Validate() error {
	fields := []*validation.FieldRules{}
	if p.Name != nil {
		fields = append(fields, validation.Field(&p.Name, validation.Required))
	}
	return validation.ValidateStruct(&p, fields...)
}

func (p OrganizationPatch) fields() map[string]any {
	fields := map[string]any{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.LogoURL != nil {
		fields["logo_url"] = *p.LogoURL
	}
	if p.Timezone != nil {
		fields["timezone"] = *p.Timezone
	}
	return fields
}

// OrganizationManager applies updates to organization records and
// coordinates logo replacement.
type OrganizationManager struct {
	store  DocumentStore
	assets *AssetManager
	logger Logger
}

// OrganizationOption configures an OrganizationManager.
type OrganizationOption func(*OrganizationManager)

// WithOrganizationLogger sets the logger.
func WithOrganizationLogger(logger Logger) OrganizationOption {
	return func(m *OrganizationManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewOrganizationManager wires the record store and the asset pipeline.
func NewOrganizationManager(store DocumentStore, assets *AssetManager, opts ...OrganizationOption) *OrganizationManager {
	m := &OrganizationManager{
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

// Update applies a partial update to an organization record.
func (m *OrganizationManager) Update(ctx context.Context, orgID string, patch OrganizationPatch) error {
	if orgID == "" {
		return ErrMissingRecordID
	}

	if err := patch.Validate(); err != nil {
		return err
	}

	fields := patch.fields()
	if len(fields) == 0 {
		m.logger.Debug("empty organization patch id=%s", orgID)
		return nil
	}

	return m.store.UpdateDocument(ctx, OrganizationsCollection, orgID, fields)
}

// ReplaceLogo replaces (or, with a nil file, removes) the organization
// logo, persisting the new reference on the record.
func (m *OrganizationManager) ReplaceLogo(ctx context.Context, orgID, currentURL string, file *AssetFile, notify func(url *string)) (string, error) {
	return m.assets.Replace(ctx, ReplaceAssetRequest{
		PathPrefix: OrganizationsCollection,
		OwnerID:    orgID,
		CurrentURL: currentURL,
		File:       file,
		Persist: func(ctx context.Context, url string) error {
			return m.Update(ctx, orgID, OrganizationPatch{LogoURL: &url})
		},
		Notify: notify,
	})
}
