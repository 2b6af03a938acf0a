package services

import (
	"context"
	"sync"
	"testing"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/interfaces"
	"aem-portal-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// fakeWikiClient serves canned pages without touching the network.
type fakeWikiClient struct {
	pages      []models.WikiPageRef
	content    map[string]string
	listErr    error
	fetchErr   map[string]error
	listCalled bool
}

func (f *fakeWikiClient) ListPages(ctx context.Context) ([]models.WikiPageRef, error) {
	f.listCalled = true
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.pages, nil
}

func (f *fakeWikiClient) GetPageContent(ctx context.Context, path string) (string, error) {
	if err, ok := f.fetchErr[path]; ok {
		return "", err
	}
	return f.content[path], nil
}

func (f *fakeWikiClient) PageURL(path string) string {
	return "https://wiki.test" + path
}

// captureSink records emitted events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []string
}

func (c *captureSink) SendSyncUpdate(eventType string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, eventType)
}

func (c *captureSink) seen(eventType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e == eventType {
			return true
		}
	}
	return false
}

func testSyncConfig() *common.Config {
	cfg := common.DefaultConfig()
	cfg.Wiki = common.WikiConfig{
		Organization: "contoso",
		Project:      "web",
		WikiID:       "design-system",
		PAT:          "test-pat",
	}
	return cfg
}

func newTestSyncer(t *testing.T, wiki *fakeWikiClient, cfg *common.Config) (*Syncer, interfaces.Storage, *captureSink) {
	t.Helper()

	store := newTestStorage(t)
	sink := &captureSink{}

	syncer := NewSyncer(cfg, store, nil, sink, arbor.NewLogger())
	syncer.newWikiClient = func(*common.WikiConfig) interfaces.WikiClient {
		return wiki
	}
	return syncer, store, sink
}

func TestSyncerRun_Success(t *testing.T) {
	wiki := &fakeWikiClient{
		pages: []models.WikiPageRef{
			{ID: 1, Path: "/Components/Hero"},
			{ID: 2, Path: "/Fragments/Promo"},
			{ID: 3, Path: "/Team/Charter"},
		},
		content: map[string]string{
			"/Components/Hero": "---\ncomponent_id: hero-banner\ntitle: Hero Banner\n---\n# Hero\n",
			"/Fragments/Promo": "---\nfragment_id: promo-card\n---\n# Promo\n",
			"/Team/Charter":    "# Charter\n\nNo frontmatter, skipped.\n",
		},
	}
	syncer, store, sink := newTestSyncer(t, wiki, testSyncConfig())

	runLog, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SyncSuccess, runLog.Status)
	assert.Equal(t, 3, runLog.PagesProcessed)
	assert.Equal(t, 0, runLog.PagesFailed)
	assert.Empty(t, runLog.ErrorLog)

	component, err := store.GetComponent("hero-banner")
	require.NoError(t, err)
	require.NotNil(t, component)
	assert.Equal(t, "Hero Banner", component.Title)
	assert.Equal(t, "https://wiki.test/Components/Hero", component.AzureWikiURL)

	fragment, err := store.GetFragment("promo-card")
	require.NoError(t, err)
	require.NotNil(t, fragment)

	assert.True(t, sink.seen("sync_started"))
	assert.True(t, sink.seen("page_synced"))
	assert.True(t, sink.seen("sync_completed"))
}

func TestSyncerRun_PartialFailure(t *testing.T) {
	wiki := &fakeWikiClient{
		pages: []models.WikiPageRef{
			{ID: 1, Path: "/Components/Hero"},
			{ID: 2, Path: "/Components/Broken"},
		},
		content: map[string]string{
			"/Components/Hero": "---\ncomponent_id: hero-banner\n---\n# Hero\n",
		},
		fetchErr: map[string]error{
			"/Components/Broken": common.NewWikiFetchError("wiki API returned status 500"),
		},
	}
	syncer, store, sink := newTestSyncer(t, wiki, testSyncConfig())

	runLog, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SyncPartial, runLog.Status)
	assert.Equal(t, 2, runLog.PagesProcessed)
	assert.Equal(t, 1, runLog.PagesFailed)
	require.Len(t, runLog.ErrorLog, 1)
	assert.Equal(t, "/Components/Broken", runLog.ErrorLog[0].Page)

	// The healthy page still landed.
	component, err := store.GetComponent("hero-banner")
	require.NoError(t, err)
	assert.NotNil(t, component)

	assert.True(t, sink.seen("page_failed"))
}

func TestSyncerRun_ListPagesFails(t *testing.T) {
	wiki := &fakeWikiClient{
		listErr: common.NewWikiFetchError("wiki API returned status 503"),
	}
	syncer, store, _ := newTestSyncer(t, wiki, testSyncConfig())

	runLog, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SyncFailed, runLog.Status)
	assert.Equal(t, 0, runLog.PagesProcessed)
	assert.Equal(t, 0, runLog.PagesFailed)
	require.Len(t, runLog.ErrorLog, 1)
	assert.Empty(t, runLog.ErrorLog[0].Page)

	// The failed run still leaves exactly one audit row.
	logs, err := store.ListSyncLogs(10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestSyncerRun_MissingConfiguration(t *testing.T) {
	cfg := testSyncConfig()
	cfg.Wiki.PAT = ""

	wiki := &fakeWikiClient{}
	syncer, store, _ := newTestSyncer(t, wiki, cfg)

	runLog, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SyncFailed, runLog.Status)
	assert.False(t, wiki.listCalled, "wiki must not be contacted with incomplete configuration")

	latest, err := store.LatestSyncLog()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.SyncFailed, latest.Status)
}

func TestSyncerRun_ZeroPages(t *testing.T) {
	syncer, _, _ := newTestSyncer(t, &fakeWikiClient{}, testSyncConfig())

	runLog, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SyncSuccess, runLog.Status)
	assert.Equal(t, 0, runLog.PagesProcessed)
}

func TestSyncerRun_EmptyAndSkippedPagesAreNotFailures(t *testing.T) {
	wiki := &fakeWikiClient{
		pages: []models.WikiPageRef{
			{ID: 1, Path: "/Empty"},
			{ID: 2, Path: "/NoID"},
		},
		content: map[string]string{
			"/Empty": "   \n",
			"/NoID":  "---\ntitle: Notes\n---\nBody.\n",
		},
	}
	syncer, store, _ := newTestSyncer(t, wiki, testSyncConfig())

	runLog, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SyncSuccess, runLog.Status)
	assert.Equal(t, 2, runLog.PagesProcessed)
	assert.Equal(t, 0, runLog.PagesFailed)

	// Skipped pages leave no rows behind.
	components, fragments, patterns, err := store.Counts()
	require.NoError(t, err)
	assert.Zero(t, components+fragments+patterns)
}

func TestSyncerRun_BothIDsUpsertsComponentOnly(t *testing.T) {
	wiki := &fakeWikiClient{
		pages: []models.WikiPageRef{{ID: 1, Path: "/Mixed"}},
		content: map[string]string{
			"/Mixed": "---\ncomponent_id: hero-banner\nfragment_id: promo-card\n---\n# Mixed\n",
		},
	}
	syncer, store, _ := newTestSyncer(t, wiki, testSyncConfig())

	runLog, err := syncer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SyncSuccess, runLog.Status)

	component, err := store.GetComponent("hero-banner")
	require.NoError(t, err)
	assert.NotNil(t, component)

	fragment, err := store.GetFragment("promo-card")
	require.NoError(t, err)
	assert.Nil(t, fragment)
}

func TestSyncerRun_PatternResolvesAgainstSameRun(t *testing.T) {
	wiki := &fakeWikiClient{
		pages: []models.WikiPageRef{
			{ID: 1, Path: "/Components/Cart"},
			{ID: 2, Path: "/Patterns/Checkout"},
		},
		content: map[string]string{
			"/Components/Cart":   "---\ncomponent_id: cart-summary\n---\n# Cart\n",
			"/Patterns/Checkout": "---\npattern_id: checkout-flow\ncomponent_ids:\n  - cart-summary\n---\n# Checkout\n",
		},
	}
	syncer, store, _ := newTestSyncer(t, wiki, testSyncConfig())

	runLog, err := syncer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.SyncSuccess, runLog.Status)

	pattern, err := store.GetPattern("checkout-flow")
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.Equal(t, []string{"cart-summary"}, pattern.ComponentSlugs)
}

func TestSyncerRun_PatternWithUnknownComponentFailsPage(t *testing.T) {
	wiki := &fakeWikiClient{
		pages: []models.WikiPageRef{
			{ID: 1, Path: "/Patterns/Checkout"},
		},
		content: map[string]string{
			"/Patterns/Checkout": "---\npattern_id: checkout-flow\ncomponent_ids:\n  - never-synced\n---\n# Checkout\n",
		},
	}
	syncer, store, _ := newTestSyncer(t, wiki, testSyncConfig())

	runLog, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.SyncFailed, runLog.Status)
	assert.Equal(t, 1, runLog.PagesFailed)

	pattern, err := store.GetPattern("checkout-flow")
	require.NoError(t, err)
	assert.Nil(t, pattern)
}

func TestSyncerRun_RejectsOverlap(t *testing.T) {
	syncer, _, _ := newTestSyncer(t, &fakeWikiClient{}, testSyncConfig())

	syncer.running.Store(true)
	_, err := syncer.Run(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)
	syncer.running.Store(false)
}

func TestSyncerRun_Idempotent(t *testing.T) {
	wiki := &fakeWikiClient{
		pages: []models.WikiPageRef{{ID: 1, Path: "/Components/Hero"}},
		content: map[string]string{
			"/Components/Hero": "---\ncomponent_id: hero-banner\n---\n# Hero\n",
		},
	}
	syncer, store, _ := newTestSyncer(t, wiki, testSyncConfig())

	_, err := syncer.Run(context.Background())
	require.NoError(t, err)
	_, err = syncer.Run(context.Background())
	require.NoError(t, err)

	components, _, _, err := store.Counts()
	require.NoError(t, err)
	assert.Equal(t, 1, components)

	// Each run leaves its own audit row.
	logs, err := store.ListSyncLogs(10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
