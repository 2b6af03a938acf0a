package interfaces

import (
	"context"

	"aem-portal-sync/internal/models"
)

// WikiClient reads the page hierarchy and page content from the wiki
// service. Implementations do not retry; a failure surfaces to the
// caller as a SyncError.
type WikiClient interface {
	// ListPages fetches the full page tree in one call and flattens it in
	// pre-order, skipping nodes without a path.
	ListPages(ctx context.Context) ([]models.WikiPageRef, error)
	// GetPageContent fetches one page's raw content. An absent content
	// field yields an empty string.
	GetPageContent(ctx context.Context, path string) (string, error)
	// PageURL builds the browse URL for a page path, used for provenance.
	PageURL(path string) string
}

// Storage is the relational catalog store. Upserts are keyed strictly by
// slug: an existing row has its mutable columns replaced, a missing row
// is inserted, and the slug itself never changes.
type Storage interface {
	UpsertComponent(component *models.Component) (created bool, err error)
	UpsertFragment(fragment *models.Fragment) (created bool, err error)
	// UpsertPattern resolves the pattern's component slugs against
	// existing Component rows in listed order and rewrites the ordered
	// relation. An unknown slug fails the whole upsert.
	UpsertPattern(pattern *models.Pattern) (created bool, err error)

	GetComponent(slug string) (*models.Component, error)
	GetFragment(slug string) (*models.Fragment, error)
	GetPattern(slug string) (*models.Pattern, error)

	// InsertSyncLog appends one audit row. Rows are never updated.
	InsertSyncLog(log *models.SyncLog) error
	ListSyncLogs(limit int) ([]models.SyncLog, error)
	LatestSyncLog() (*models.SyncLog, error)

	Counts() (components, fragments, patterns int, err error)
	Close() error
}

// SnapshotCache remembers the content hash of each page seen in earlier
// runs so the syncer can label work as created, updated or unchanged.
type SnapshotCache interface {
	// Touch records the page's current content hash and reports how it
	// compares with the previous run.
	Touch(path, content string) (models.ChangeKind, error)
	Close() error
}

// SyncRunner is the orchestration entry point invoked by the scheduler
// and the manual trigger.
type SyncRunner interface {
	// Run executes one full sync and returns the audit record that was
	// written. ErrSyncInProgress is returned if a run is already active.
	Run(ctx context.Context) (*models.SyncLog, error)
	IsRunning() bool
}

// EventSink receives run lifecycle events for live monitoring. A nil
// sink is valid; the syncer treats events as fire-and-forget.
type EventSink interface {
	SendSyncUpdate(eventType string, data any)
}

// WebService is the admin/monitoring HTTP surface.
type WebService interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}
