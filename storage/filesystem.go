// Package storage provides blob storage backends for the asset pipeline.
package storage

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
)

// FileStore keeps blobs on the local filesystem under a root directory and
// serves them from a base URL.
type FileStore struct {
	root    string
	baseURL string
}

var _ accounts.BlobStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. Download URLs are built by
// joining baseURL with the blob path.
func NewFileStore(dir, baseURL string) *FileStore {
	return &FileStore{
		root:    dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload writes the blob, replacing any existing content at the path.
func (s *FileStore) Upload(ctx context.Context, blobPath string, data []byte, contentType string) error {
	target, err := s.resolve(blobPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create blob directory")
	}

	if err := os.WriteFile(target, data, 0o644); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write blob")
	}

	return nil
}

// DownloadURL returns the public URL for an uploaded blob.
func (s *FileStore) DownloadURL(ctx context.Context, blobPath string) (string, error) {
	target, err := s.resolve(blobPath)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return "", accounts.ErrBlobNotFound
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to stat blob")
	}

	escaped := make([]string, 0)
	for _, part := range strings.Split(strings.Trim(blobPath, "/"), "/") {
		escaped = append(escaped, url.PathEscape(part))
	}

	return s.baseURL + "/" + strings.Join(escaped, "/"), nil
}

// Delete removes the blob. A missing path reports accounts.ErrBlobNotFound.
func (s *FileStore) Delete(ctx context.Context, blobPath string) error {
	target, err := s.resolve(blobPath)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil {
		if os.IsNotExist(err) {
			return accounts.ErrBlobNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete blob")
	}

	return nil
}

// resolve maps a blob path to a filesystem path, rejecting traversal out of
// the root. Stored references carry the base URL, so it is stripped first.
func (s *FileStore) resolve(blobPath string) (string, error) {
	if s.baseURL != "" {
		blobPath = strings.TrimPrefix(blobPath, s.baseURL)
	}

	cleaned := path.Clean("/" + blobPath)
	if cleaned == "/" {
		return "", goerrors.New("empty blob path", goerrors.CategoryBadInput)
	}

	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}
