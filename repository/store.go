package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

var profileColumns = map[string]bool{
	"display_name": true,
	"photo_url":    true,
	"phone_number": true,
}

var organizationColumns = map[string]bool{
	"name":     true,
	"logo_url": true,
	"timezone": true,
}

// DocumentStore applies partial-merge updates to profile and organization
// records. Updating a record that does not exist yet creates it.
type DocumentStore struct {
	db *bun.DB
}

var _ accounts.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a new store.
func NewDocumentStore(db *bun.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// UpdateDocument merges fields into the record identified by id within the
// collection. Fields absent from the map keep their stored values.
func (s *DocumentStore) UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) error {
	if id == "" {
		return accounts.ErrMissingRecordID
	}

	switch collection {
	case accounts.ProfilesCollection:
		return s.mergeProfile(ctx, id, fields)
	case accounts.OrganizationsCollection:
		return s.mergeOrganization(ctx, id, fields)
	default:
		return goerrors.New("unknown collection: "+collection, goerrors.CategoryBadInput)
	}
}

func (s *DocumentStore) mergeProfile(ctx context.Context, uid string, fields map[string]any) error {
	if err := checkColumns(profileColumns, fields); err != nil {
		return err
	}

	now := time.Now()

	query := s.db.NewUpdate().
		Model((*ProfileModel)(nil)).
		Where("uid = ?", uid).
		Set("updated_at = ?", now)
	for column, value := range fields {
		query = query.Set(column+" = ?", value)
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
	}

	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	record := &ProfileModel{UID: uid, UpdatedAt: &now}
	if id, err := hashid.NewUUID(uid); err == nil {
		record.ID = id
	}
	if v, ok := fields["display_name"].(string); ok {
		record.DisplayName = v
	}
	if v, ok := fields["photo_url"].(string); ok {
		record.PhotoURL = v
	}
	if v, ok := fields["phone_number"].(string); ok {
		record.PhoneNumber = v
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "failed to create profile")
	}

	return nil
}

func (s *DocumentStore) mergeOrganization(ctx context.Context, orgID string, fields map[string]any) error {
	if err := checkColumns(organizationColumns, fields); err != nil {
		return err
	}

	now := time.Now()

	query := s.db.NewUpdate().
		Model((*OrganizationModel)(nil)).
		Where("org_id = ?", orgID).
		Set("updated_at = ?", now)
	for column, value := range fields {
		query = query.Set(column+" = ?", value)
	}

	res, err := query.Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update organization")
	}

	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	record := &OrganizationModel{OrgID: orgID, UpdatedAt: &now}
	if id, err := hashid.NewUUID(orgID); err == nil {
		record.ID = id
	}
	if v, ok := fields["name"].(string); ok {
		record.Name = v
	}
	if v, ok := fields["logo_url"].(string); ok {
		record.LogoURL = v
	}
	if v, ok := fields["timezone"].(string); ok {
		record.Timezone = v
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryConflict, "failed to create organization")
	}

	return nil
}

func checkColumns(allowed map[string]bool, fields map[string]any) error {
	for column := range fields {
		if !allowed[column] {
			return goerrors.New("unknown field: "+column, goerrors.CategoryBadInput)
		}
	}
	return nil
}
