package accounts

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
)

// AssetFile is an uploaded binary asset.
type AssetFile struct {
	Name        string
	Data        []byte
	ContentType string
}

// ReplaceAssetRequest describes one asset replacement or removal.
type ReplaceAssetRequest struct {
	// PathPrefix groups assets by kind, e.g. "profiles" or
	// "organizations".
	PathPrefix string

	// OwnerID keys the deterministic storage path.
	OwnerID string

	// CurrentURL is the record's existing asset reference, empty when
	// none exists.
	CurrentURL string

	// File is the replacement. Nil means explicit removal.
	File *AssetFile

	// Persist stores the new reference on the owning record. It runs
	// only after deletion and upload both succeeded.
	Persist func(ctx context.Context, url string) error

	// Notify delivers the outcome to the caller: the new URL, or nil on
	// removal. Skipped entirely when the chain fails.
	Notify func(url *string)
}

// AssetManager runs the delete-old, upload-new, persist-reference chain
// shared by avatar and logo updates. Steps are strictly sequential; any
// failure aborts the remaining steps.
type AssetManager struct {
	store  BlobStore
	logger Logger
}

// AssetOption configures an AssetManager.
type AssetOption func(*AssetManager)

// WithAssetLogger sets the logger.
func WithAssetLogger(logger Logger) AssetOption {
	return func(m *AssetManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewAssetManager creates a manager over a blob store.
func NewAssetManager(store BlobStore, opts ...AssetOption) *AssetManager {
	m := &AssetManager{
		store:  store,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Replace runs the replacement chain and returns the new public URL, or
// runs the removal chain (File == nil) and returns "".
func (m *AssetManager) Replace(ctx context.Context, req ReplaceAssetRequest) (string, error) {
	if req.OwnerID == "" {
		return "", ErrMissingRecordID
	}

	if req.File == nil {
		return "", m.remove(ctx, req)
	}

	if err := m.deleteExisting(ctx, req.CurrentURL); err != nil {
		return "", assetStepError("delete", err)
	}

	path := AssetPath(req.PathPrefix, req.OwnerID, req.File.Name)
	if err := m.store.Upload(ctx, path, req.File.Data, req.File.ContentType); err != nil {
		return "", assetStepError("upload", err)
	}

	url, err := m.store.DownloadURL(ctx, path)
	if err != nil {
		return "", assetStepError("resolve_url", err)
	}

	if req.Persist != nil {
		if err := req.Persist(ctx, url); err != nil {
			return "", assetStepError("persist", err)
		}
	}

	m.logger.Info("asset replaced owner=%s path=%s", req.OwnerID, path)

	if req.Notify != nil {
		req.Notify(&url)
	}

	return url, nil
}

// remove deletes the existing asset and persists an empty reference. The
// empty reference is persisted only after a successful delete, keeping the
// removal path as strict as the replacement path.
func (m *AssetManager) remove(ctx context.Context, req ReplaceAssetRequest) error {
	if req.CurrentURL == "" {
		m.logger.Debug("no asset to remove owner=%s", req.OwnerID)
		return nil
	}

	if err := m.deleteExisting(ctx, req.CurrentURL); err != nil {
		return assetStepError("delete", err)
	}

	if req.Persist != nil {
		if err := req.Persist(ctx, ""); err != nil {
			return assetStepError("persist", err)
		}
	}

	m.logger.Info("asset removed owner=%s", req.OwnerID)

	if req.Notify != nil {
		req.Notify(nil)
	}

	return nil
}

// deleteExisting removes the current asset, tolerating a missing blob. The
// reference may point at an object deleted out of band.
func (m *AssetManager) deleteExisting(ctx context.Context, currentURL string) error {
	if currentURL == "" {
		return nil
	}

	if err := m.store.Delete(ctx, currentURL); err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			m.logger.Debug("existing asset already gone: %s", currentURL)
			return nil
		}
		return err
	}

	return nil
}

// AssetPath builds the deterministic storage path for an owner's asset.
func AssetPath(prefix, ownerID, fileName string) string {
	parts := []string{strings.Trim(prefix, "/"), ownerID, fileName}
	return strings.Join(parts, "/")
}

func assetStepError(step string, err error) error {
	return wrapCollaboratorError(ErrAssetPipelineFailed, step, err)
}
