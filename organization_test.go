package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizationUpdateAppliesPresentFields(t *testing.T) {
	store := &stubDocumentStore{}
	manager := NewOrganizationManager(store, nil, WithOrganizationLogger(testLogger{}))

	err := manager.Update(context.Background(), "org-1", OrganizationPatch{
		Name:     strptr("Acme Inc"),
		Timezone: strptr("America/New_York"),
	})
	require.NoError(t, err)

	update, ok := store.lastUpdate()
	require.True(t, ok)
	assert.Equal(t, OrganizationsCollection, update.collection)
	assert.Equal(t, "org-1", update.id)
	assert.Equal(t, map[string]any{
		"name":     "Acme Inc",
		"timezone": "America/New_York",
	}, update.fields)
}

func TestOrganizationUpdateRequiresID(t *testing.T) {
	manager := NewOrganizationManager(&stubDocumentStore{}, nil, WithOrganizationLogger(testLogger{}))

	err := manager.Update(context.Background(), "", OrganizationPatch{Name: strptr("Acme")})
	require.Error(t, err)
	assert.Equal(t, TextCodeMissingRecordID, ErrorCode(err))
}

func TestOrganizationUpdateRejectsEmptyName(t *testing.T) {
	manager := NewOrganizationManager(&stubDocumentStore{}, nil, WithOrganizationLogger(testLogger{}))

	err := manager.Update(context.Background(), "org-1", OrganizationPatch{Name: strptr("")})
	require.Error(t, err)
}

func TestOrganizationUpdateEmptyPatchIsNoop(t *testing.T) {
	store := &stubDocumentStore{}
	manager := NewOrganizationManager(store, nil, WithOrganizationLogger(testLogger{}))

	err := manager.Update(context.Background(), "org-1", OrganizationPatch{})
	require.NoError(t, err)
	assert.Empty(t, store.updates)
}

func TestReplaceLogoPersistsLogoURL(t *testing.T) {
	store := &stubDocumentStore{}
	blobs := &stubBlobStore{}
	manager := NewOrganizationManager(store,
		NewAssetManager(blobs, WithAssetLogger(testLogger{})),
		WithOrganizationLogger(testLogger{}),
	)

	url, err := manager.ReplaceLogo(context.Background(), "org-1", "organizations/org-1/old.png", &AssetFile{
		Name: "logo.png",
		Data: []byte("img"),
	}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, url)

	update, ok := store.lastUpdate()
	require.True(t, ok)
	assert.Equal(t, OrganizationsCollection, update.collection)
	assert.Equal(t, map[string]any{"logo_url": url}, update.fields)
	assert.Equal(t, []string{
		"delete:organizations/org-1/old.png",
		"upload:organizations/org-1/logo.png",
		"download_url:organizations/org-1/logo.png",
	}, blobs.calls)
}

func TestRemoveLogoClearsLogoURL(t *testing.T) {
	store := &stubDocumentStore{}
	blobs := &stubBlobStore{}
	manager := NewOrganizationManager(store,
		NewAssetManager(blobs, WithAssetLogger(testLogger{})),
		WithOrganizationLogger(testLogger{}),
	)

	url, err := manager.ReplaceLogo(context.Background(), "org-1", "organizations/org-1/logo.png", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, url)

	update, ok := store.lastUpdate()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"logo_url": ""}, update.fields)
}
