package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/interfaces"
	"aem-portal-sync/internal/models"

	"github.com/ternarybob/arbor"
)

// ErrSyncInProgress is returned when a run is requested while another is
// still active. The scheduler is trusted not to overlap itself, but the
// manual trigger makes overlap reachable.
var ErrSyncInProgress = errors.New("sync run already in progress")

// Syncer orchestrates one run: list pages, then for each page fetch,
// parse, classify, map and upsert, isolating per-page failures. Exactly
// one SyncLog row is written per invocation, on every path.
type Syncer struct {
	config    *common.Config
	storage   interfaces.Storage
	snapshots interfaces.SnapshotCache
	events    interfaces.EventSink
	logger    arbor.ILogger
	running   atomic.Bool

	// newWikiClient is swapped in tests to avoid network calls.
	newWikiClient func(*common.WikiConfig) interfaces.WikiClient
}

// NewSyncer wires the orchestrator. snapshots and events may be nil.
func NewSyncer(config *common.Config, storage interfaces.Storage, snapshots interfaces.SnapshotCache, events interfaces.EventSink, logger arbor.ILogger) *Syncer {
	return &Syncer{
		config:        config,
		storage:       storage,
		snapshots:     snapshots,
		events:        events,
		logger:        logger,
		newWikiClient: NewWikiClient,
	}
}

func (s *Syncer) IsRunning() bool {
	return s.running.Load()
}

// Run executes one full synchronization and returns the audit record
// that was written.
func (s *Syncer) Run(ctx context.Context) (*models.SyncLog, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	startedAt := time.Now()
	s.logger.Info().Str("started_at", startedAt.Format(time.RFC3339)).Msg("Wiki sync started")
	s.emit("sync_started", map[string]any{"started_at": startedAt})

	// Configuration gate: no wiki call is attempted when any required
	// value is missing. The run still ends in a SyncLog row.
	if err := s.config.ValidateWiki(); err != nil {
		s.logger.Error().Err(err).Msg("Sync aborted: configuration invalid")
		return s.abort(startedAt, err)
	}

	wiki := s.newWikiClient(&s.config.Wiki)

	pages, err := wiki.ListPages(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Sync aborted: failed to list wiki pages")
		return s.abort(startedAt, err)
	}

	s.logger.Info().Int("pages", len(pages)).Msg("Wiki page tree fetched")

	processed := 0
	failed := 0
	errorLog := []models.SyncLogEntry{}

	for _, page := range pages {
		processed++
		if err := s.processPage(ctx, wiki, page); err != nil {
			failed++
			errorLog = append(errorLog, models.SyncLogEntry{
				Page:      page.Path,
				Error:     err.Error(),
				Timestamp: time.Now(),
			})
			s.logger.Warn().Err(err).Str("page", page.Path).Msg("Failed to process wiki page")
			s.emit("page_failed", map[string]any{"page": page.Path, "error": err.Error()})
			// Per-page isolation: one page's failure never aborts the run.
			continue
		}
	}

	runLog := &models.SyncLog{
		SyncStartedAt:   startedAt,
		SyncCompletedAt: time.Now(),
		Status:          models.Classify(processed, failed),
		PagesProcessed:  processed,
		PagesFailed:     failed,
		ErrorLog:        errorLog,
	}

	return s.finalize(runLog)
}

// abort ends a run that failed before the per-page loop: configuration
// errors and page-listing failures. No pages were processed.
func (s *Syncer) abort(startedAt time.Time, cause error) (*models.SyncLog, error) {
	runLog := &models.SyncLog{
		SyncStartedAt:   startedAt,
		SyncCompletedAt: time.Now(),
		Status:          models.SyncFailed,
		PagesProcessed:  0,
		PagesFailed:     0,
		ErrorLog: []models.SyncLogEntry{{
			Error:     cause.Error(),
			Timestamp: time.Now(),
		}},
	}
	return s.finalize(runLog)
}

// finalize writes the single audit row for this run.
func (s *Syncer) finalize(runLog *models.SyncLog) (*models.SyncLog, error) {
	if err := s.storage.InsertSyncLog(runLog); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write sync log")
		return runLog, err
	}

	s.logger.Info().
		Str("status", string(runLog.Status)).
		Int("processed", runLog.PagesProcessed).
		Int("failed", runLog.PagesFailed).
		Msg("Wiki sync completed")

	s.emit("sync_completed", map[string]any{
		"status":          string(runLog.Status),
		"pages_processed": runLog.PagesProcessed,
		"pages_failed":    runLog.PagesFailed,
	})

	return runLog, nil
}

// processPage runs the full pipeline for one page. Any error returned
// here is recorded as a per-page failure; a nil return covers both
// synced and deliberately skipped pages.
func (s *Syncer) processPage(ctx context.Context, wiki interfaces.WikiClient, page models.WikiPageRef) error {
	content, err := wiki.GetPageContent(ctx, page.Path)
	if err != nil {
		return err
	}

	if strings.TrimSpace(content) == "" {
		s.logger.Debug().Str("page", page.Path).Msg("Page has no content, skipping")
		return nil
	}

	parsed := ParseFrontmatter(content)
	kind := Classify(parsed.Metadata)
	if kind == models.PageKindSkip {
		s.logger.Debug().Str("page", page.Path).Msg("No entity id in frontmatter, skipping")
		return nil
	}

	change := models.ChangeUpdated
	if s.snapshots != nil {
		if c, err := s.snapshots.Touch(page.Path, content); err != nil {
			// Snapshot bookkeeping must not fail the page.
			s.logger.Warn().Err(err).Str("page", page.Path).Msg("Snapshot update failed")
		} else {
			change = c
		}
	}

	outline := ExtractBodyOutline(parsed.Body)
	wikiURL := wiki.PageURL(page.Path)

	var (
		slug    string
		created bool
	)

	switch kind {
	case models.PageKindComponent:
		component, err := MapComponent(parsed.Metadata, outline, page.Path, wikiURL, time.Now())
		if err != nil {
			return err
		}
		slug = component.Slug
		if created, err = s.storage.UpsertComponent(component); err != nil {
			return err
		}

	case models.PageKindFragment:
		fragment, err := MapFragment(parsed.Metadata, outline, page.Path, wikiURL)
		if err != nil {
			return err
		}
		slug = fragment.Slug
		if created, err = s.storage.UpsertFragment(fragment); err != nil {
			return err
		}

	case models.PageKindPattern:
		pattern, err := MapPattern(parsed.Metadata, outline, page.Path, wikiURL)
		if err != nil {
			return err
		}
		slug = pattern.Slug
		if created, err = s.storage.UpsertPattern(pattern); err != nil {
			return err
		}
	}

	if created {
		change = models.ChangeCreated
	}

	s.logger.Info().
		Str("page", page.Path).
		Str("kind", string(kind)).
		Str("slug", slug).
		Str("change", string(change)).
		Msg("Synced wiki page")

	s.emit("page_synced", map[string]any{
		"page":   page.Path,
		"kind":   string(kind),
		"slug":   slug,
		"change": string(change),
	})

	return nil
}

func (s *Syncer) emit(eventType string, data map[string]any) {
	if s.events != nil {
		s.events.SendSyncUpdate(eventType, data)
	}
}
