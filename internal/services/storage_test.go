package services

import (
	"path/filepath"
	"testing"
	"time"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/interfaces"
	"aem-portal-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) interfaces.Storage {
	t.Helper()

	store, err := NewStorage(&common.StorageConfig{
		DatabasePath: filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func testComponent(slug string) *models.Component {
	return &models.Component{
		Slug:              slug,
		Title:             "Hero Banner",
		Description:       "Full-width banner.",
		Tags:              []string{"marketing"},
		Status:            models.StatusStable,
		OwnerTeam:         "Web Platform",
		AzureWikiPath:     "/Components/Hero",
		AzureWikiURL:      "https://wiki/hero",
		FigmaLinks:        []string{},
		LastSyncedAt:      time.Now(),
		LastUpdatedSource: models.SourceAzure,
	}
}

func TestUpsertComponent_CreateThenUpdate(t *testing.T) {
	store := newTestStorage(t)

	created, err := store.UpsertComponent(testComponent("hero-banner"))
	require.NoError(t, err)
	assert.True(t, created)

	updated := testComponent("hero-banner")
	updated.Title = "Hero Banner (v2)"
	updated.Status = models.StatusDeprecated

	created, err = store.UpsertComponent(updated)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetComponent("hero-banner")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Hero Banner (v2)", got.Title)
	assert.Equal(t, models.StatusDeprecated, got.Status)
	assert.Equal(t, []string{"marketing"}, got.Tags)
}

func TestUpsertComponent_PreservesCreatedAt(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.UpsertComponent(testComponent("hero-banner"))
	require.NoError(t, err)

	first, err := store.GetComponent("hero-banner")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	_, err = store.UpsertComponent(testComponent("hero-banner"))
	require.NoError(t, err)

	second, err := store.GetComponent("hero-banner")
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestGetComponent_Missing(t *testing.T) {
	store := newTestStorage(t)

	got, err := store.GetComponent("no-such-slug")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertFragment(t *testing.T) {
	store := newTestStorage(t)

	fragment := &models.Fragment{
		Slug:  "promo-card",
		Type:  models.FragmentExperience,
		Title: "Promo Card",
		Variations: []models.FragmentVariation{
			{Name: "default", Description: "Standard layout"},
		},
		Tags: []string{"promo"},
	}

	created, err := store.UpsertFragment(fragment)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.GetFragment("promo-card")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.FragmentExperience, got.Type)
	require.Len(t, got.Variations, 1)
	assert.Equal(t, "default", got.Variations[0].Name)
}

func TestUpsertPattern_ResolvesComponents(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.UpsertComponent(testComponent("cart-summary"))
	require.NoError(t, err)
	_, err = store.UpsertComponent(testComponent("payment-form"))
	require.NoError(t, err)

	pattern := &models.Pattern{
		Slug:           "checkout-flow",
		Title:          "Checkout Flow",
		Tags:           []string{},
		ComponentSlugs: []string{"payment-form", "cart-summary"},
	}

	created, err := store.UpsertPattern(pattern)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.GetPattern("checkout-flow")
	require.NoError(t, err)
	require.NotNil(t, got)
	// Listed order, not alphabetical.
	assert.Equal(t, []string{"payment-form", "cart-summary"}, got.ComponentSlugs)
}

func TestUpsertPattern_UnknownComponentFails(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.UpsertComponent(testComponent("cart-summary"))
	require.NoError(t, err)

	pattern := &models.Pattern{
		Slug:           "checkout-flow",
		Title:          "Checkout Flow",
		Tags:           []string{},
		ComponentSlugs: []string{"cart-summary", "no-such-component"},
	}

	_, err = store.UpsertPattern(pattern)
	require.Error(t, err)
	assert.True(t, common.IsErrorType(err, common.ErrorTypeStorage))

	// The failed upsert must not leave a half-written pattern behind.
	got, err := store.GetPattern("checkout-flow")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertPattern_RewritesRelation(t *testing.T) {
	store := newTestStorage(t)

	for _, slug := range []string{"a", "b", "c"} {
		_, err := store.UpsertComponent(testComponent(slug))
		require.NoError(t, err)
	}

	pattern := &models.Pattern{Slug: "flow", Title: "Flow", Tags: []string{}, ComponentSlugs: []string{"a", "b"}}
	_, err := store.UpsertPattern(pattern)
	require.NoError(t, err)

	pattern.ComponentSlugs = []string{"c"}
	created, err := store.UpsertPattern(pattern)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetPattern("flow")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got.ComponentSlugs)
}

func TestSyncLogs_AppendOnly(t *testing.T) {
	store := newTestStorage(t)

	base := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := store.InsertSyncLog(&models.SyncLog{
			SyncStartedAt:   base.Add(time.Duration(i) * time.Hour),
			SyncCompletedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			Status:          models.SyncSuccess,
			PagesProcessed:  10 + i,
		})
		require.NoError(t, err)
	}

	logs, err := store.ListSyncLogs(10)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	// Newest first.
	assert.Equal(t, 12, logs[0].PagesProcessed)
	assert.Equal(t, 10, logs[2].PagesProcessed)

	latest, err := store.LatestSyncLog()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 12, latest.PagesProcessed)
}

func TestSyncLogs_ErrorLogRoundTrip(t *testing.T) {
	store := newTestStorage(t)

	err := store.InsertSyncLog(&models.SyncLog{
		SyncStartedAt:   time.Now(),
		SyncCompletedAt: time.Now(),
		Status:          models.SyncPartial,
		PagesProcessed:  5,
		PagesFailed:     1,
		ErrorLog: []models.SyncLogEntry{
			{Page: "/Components/Broken", Error: "component_id is missing", Timestamp: time.Now()},
		},
	})
	require.NoError(t, err)

	latest, err := store.LatestSyncLog()
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Len(t, latest.ErrorLog, 1)
	assert.Equal(t, "/Components/Broken", latest.ErrorLog[0].Page)
}

func TestCounts(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.UpsertComponent(testComponent("hero-banner"))
	require.NoError(t, err)
	_, err = store.UpsertFragment(&models.Fragment{Slug: "promo-card", Title: "Promo", Tags: []string{}, Variations: []models.FragmentVariation{}})
	require.NoError(t, err)

	components, fragments, patterns, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, 1, components)
	assert.Equal(t, 1, fragments)
	assert.Equal(t, 0, patterns)
}
