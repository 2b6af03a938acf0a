package services

import (
	"path/filepath"
	"testing"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/interfaces"
	"aem-portal-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSnapshotCache(t *testing.T) interfaces.SnapshotCache {
	t.Helper()

	cache, err := NewSnapshotCache(&common.StorageConfig{
		SnapshotPath: filepath.Join(t.TempDir(), "snapshots.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	return cache
}

func TestSnapshotCache_Touch(t *testing.T) {
	cache := newTestSnapshotCache(t)

	change, err := cache.Touch("/Components/Hero", "first content")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeCreated, change)

	change, err = cache.Touch("/Components/Hero", "first content")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeUnchanged, change)

	change, err = cache.Touch("/Components/Hero", "edited content")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeUpdated, change)
}

func TestSnapshotCache_PathsAreIndependent(t *testing.T) {
	cache := newTestSnapshotCache(t)

	_, err := cache.Touch("/Components/Hero", "same content")
	require.NoError(t, err)

	change, err := cache.Touch("/Components/Card", "same content")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeCreated, change)
}

func TestSnapshotCache_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	config := &common.StorageConfig{SnapshotPath: path}

	cache, err := NewSnapshotCache(config)
	require.NoError(t, err)
	_, err = cache.Touch("/Components/Hero", "content")
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	reopened, err := NewSnapshotCache(config)
	require.NoError(t, err)
	defer reopened.Close()

	change, err := reopened.Touch("/Components/Hero", "content")
	require.NoError(t, err)
	assert.Equal(t, models.ChangeUnchanged, change)
}
