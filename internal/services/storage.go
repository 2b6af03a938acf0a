package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/interfaces"
	"aem-portal-sync/internal/models"

	_ "modernc.org/sqlite"
)

type storage struct {
	db *sql.DB
}

// NewStorage opens the catalog database, applying performance pragmas
// and the schema in a single batch. The connection is owned by the
// process lifecycle: opened once at startup, shared across runs, closed
// only at shutdown.
func NewStorage(config *common.StorageConfig) (interfaces.Storage, error) {
	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.DatabasePath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS components (
			slug TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'stable',
			owner_team TEXT NOT NULL DEFAULT '',
			owner_email TEXT NOT NULL DEFAULT '',
			azure_wiki_path TEXT NOT NULL DEFAULT '',
			azure_wiki_url TEXT NOT NULL DEFAULT '',
			figma_links TEXT NOT NULL DEFAULT '[]',
			aem_metadata TEXT NOT NULL DEFAULT '{}',
			visual_assets TEXT,
			last_synced_at TEXT,
			last_updated_source TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS fragments (
			slug TEXT PRIMARY KEY,
			type TEXT NOT NULL DEFAULT 'content_fragment',
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			schema TEXT,
			variations TEXT NOT NULL DEFAULT '[]',
			tags TEXT NOT NULL DEFAULT '[]',
			azure_wiki_path TEXT NOT NULL DEFAULT '',
			azure_wiki_url TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS patterns (
			slug TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			azure_wiki_path TEXT NOT NULL DEFAULT '',
			azure_wiki_url TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pattern_components (
			pattern_slug TEXT NOT NULL REFERENCES patterns(slug) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			component_slug TEXT NOT NULL REFERENCES components(slug),
			PRIMARY KEY (pattern_slug, position)
		);
		CREATE TABLE IF NOT EXISTS sync_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sync_started_at TEXT NOT NULL,
			sync_completed_at TEXT NOT NULL,
			status TEXT NOT NULL,
			pages_processed INTEGER NOT NULL,
			pages_failed INTEGER NOT NULL,
			error_log TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_sync_logs_started ON sync_logs(sync_started_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	return &storage{db: db}, nil
}

func (s *storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// UpsertComponent writes a component keyed by slug. The slug is
// immutable; an existing row has every sync-owned column replaced while
// created_at and visual_assets (owned by the asset upload path) are
// preserved.
func (s *storage) UpsertComponent(component *models.Component) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	aemJSON, err := json.Marshal(component.AEM)
	if err != nil {
		return false, common.WrapError(err, common.ErrorTypeStorage, "failed to encode aem metadata")
	}

	existed, err := s.rowExists("components", component.Slug)
	if err != nil {
		return false, err
	}

	_, err = s.db.Exec(`
		INSERT INTO components (
			slug, title, description, tags, status, owner_team, owner_email,
			azure_wiki_path, azure_wiki_url, figma_links, aem_metadata,
			last_synced_at, last_updated_source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			tags = excluded.tags,
			status = excluded.status,
			owner_team = excluded.owner_team,
			owner_email = excluded.owner_email,
			azure_wiki_path = excluded.azure_wiki_path,
			azure_wiki_url = excluded.azure_wiki_url,
			figma_links = excluded.figma_links,
			aem_metadata = excluded.aem_metadata,
			last_synced_at = excluded.last_synced_at,
			last_updated_source = excluded.last_updated_source,
			updated_at = excluded.updated_at
	`,
		component.Slug, component.Title, component.Description,
		mustJSON(component.Tags), string(component.Status),
		component.OwnerTeam, component.OwnerEmail,
		component.AzureWikiPath, component.AzureWikiURL,
		mustJSON(component.FigmaLinks), string(aemJSON),
		component.LastSyncedAt.UTC().Format(time.RFC3339),
		string(component.LastUpdatedSource), now, now,
	)
	if err != nil {
		return false, common.WrapError(err, common.ErrorTypeStorage,
			fmt.Sprintf("failed to upsert component %s", component.Slug))
	}

	return !existed, nil
}

// UpsertFragment writes a fragment keyed by slug.
func (s *storage) UpsertFragment(fragment *models.Fragment) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	var schemaJSON any
	if fragment.Schema != nil {
		schemaJSON = mustJSON(fragment.Schema)
	}

	existed, err := s.rowExists("fragments", fragment.Slug)
	if err != nil {
		return false, err
	}

	_, err = s.db.Exec(`
		INSERT INTO fragments (
			slug, type, title, description, schema, variations, tags,
			azure_wiki_path, azure_wiki_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			type = excluded.type,
			title = excluded.title,
			description = excluded.description,
			schema = excluded.schema,
			variations = excluded.variations,
			tags = excluded.tags,
			azure_wiki_path = excluded.azure_wiki_path,
			azure_wiki_url = excluded.azure_wiki_url,
			updated_at = excluded.updated_at
	`,
		fragment.Slug, string(fragment.Type), fragment.Title, fragment.Description,
		schemaJSON, mustJSON(fragment.Variations), mustJSON(fragment.Tags),
		fragment.AzureWikiPath, fragment.AzureWikiURL, now, now,
	)
	if err != nil {
		return false, common.WrapError(err, common.ErrorTypeStorage,
			fmt.Sprintf("failed to upsert fragment %s", fragment.Slug))
	}

	return !existed, nil
}

// UpsertPattern writes a pattern and rewrites its ordered component
// relation in one transaction. Every referenced slug must already exist
// as a Component row; an unknown slug fails the upsert so the page is
// counted as failed rather than written half-resolved.
func (s *storage) UpsertPattern(pattern *models.Pattern) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return false, common.WrapError(err, common.ErrorTypeStorage, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, slug := range pattern.ComponentSlugs {
		var exists int
		err := tx.QueryRow(`SELECT COUNT(1) FROM components WHERE slug = ?`, slug).Scan(&exists)
		if err != nil {
			return false, common.WrapError(err, common.ErrorTypeStorage,
				fmt.Sprintf("failed to resolve component %s", slug))
		}
		if exists == 0 {
			return false, common.NewStorageError(
				fmt.Sprintf("pattern %s references unknown component slug %q", pattern.Slug, slug))
		}
	}

	var existed int
	if err := tx.QueryRow(`SELECT COUNT(1) FROM patterns WHERE slug = ?`, pattern.Slug).Scan(&existed); err != nil {
		return false, common.WrapError(err, common.ErrorTypeStorage, "failed to check pattern existence")
	}

	_, err = tx.Exec(`
		INSERT INTO patterns (
			slug, title, description, tags, azure_wiki_path, azure_wiki_url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			tags = excluded.tags,
			azure_wiki_path = excluded.azure_wiki_path,
			azure_wiki_url = excluded.azure_wiki_url,
			updated_at = excluded.updated_at
	`,
		pattern.Slug, pattern.Title, pattern.Description, mustJSON(pattern.Tags),
		pattern.AzureWikiPath, pattern.AzureWikiURL, now, now,
	)
	if err != nil {
		return false, common.WrapError(err, common.ErrorTypeStorage,
			fmt.Sprintf("failed to upsert pattern %s", pattern.Slug))
	}

	if _, err := tx.Exec(`DELETE FROM pattern_components WHERE pattern_slug = ?`, pattern.Slug); err != nil {
		return false, common.WrapError(err, common.ErrorTypeStorage, "failed to clear pattern components")
	}
	for position, slug := range pattern.ComponentSlugs {
		_, err := tx.Exec(`
			INSERT INTO pattern_components (pattern_slug, position, component_slug)
			VALUES (?, ?, ?)
		`, pattern.Slug, position, slug)
		if err != nil {
			return false, common.WrapError(err, common.ErrorTypeStorage,
				fmt.Sprintf("failed to link pattern %s to component %s", pattern.Slug, slug))
		}
	}

	if err := tx.Commit(); err != nil {
		return false, common.WrapError(err, common.ErrorTypeStorage, "failed to commit pattern upsert")
	}

	return existed == 0, nil
}

func (s *storage) GetComponent(slug string) (*models.Component, error) {
	var (
		c                models.Component
		tags, figma      string
		aemJSON          string
		visualAssets     sql.NullString
		lastSyncedAt     sql.NullString
		status, source   string
		created, updated string
	)

	err := s.db.QueryRow(`
		SELECT slug, title, description, tags, status, owner_team, owner_email,
		       azure_wiki_path, azure_wiki_url, figma_links, aem_metadata,
		       visual_assets, last_synced_at, last_updated_source,
		       created_at, updated_at
		FROM components WHERE slug = ?
	`, slug).Scan(
		&c.Slug, &c.Title, &c.Description, &tags, &status, &c.OwnerTeam, &c.OwnerEmail,
		&c.AzureWikiPath, &c.AzureWikiURL, &figma, &aemJSON,
		&visualAssets, &lastSyncedAt, &source, &created, &updated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeStorage,
			fmt.Sprintf("failed to load component %s", slug))
	}

	c.Status = models.ComponentStatus(status)
	c.LastUpdatedSource = models.UpdateSource(source)
	json.Unmarshal([]byte(tags), &c.Tags)
	json.Unmarshal([]byte(figma), &c.FigmaLinks)
	json.Unmarshal([]byte(aemJSON), &c.AEM)
	if visualAssets.Valid {
		var va models.VisualAssets
		if json.Unmarshal([]byte(visualAssets.String), &va) == nil {
			c.VisualAssets = &va
		}
	}
	if lastSyncedAt.Valid {
		c.LastSyncedAt, _ = time.Parse(time.RFC3339, lastSyncedAt.String)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, created)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updated)

	return &c, nil
}

func (s *storage) GetFragment(slug string) (*models.Fragment, error) {
	var (
		f                models.Fragment
		fragmentType     string
		schema           sql.NullString
		variations, tags string
		created, updated string
	)

	err := s.db.QueryRow(`
		SELECT slug, type, title, description, schema, variations, tags,
		       azure_wiki_path, azure_wiki_url, created_at, updated_at
		FROM fragments WHERE slug = ?
	`, slug).Scan(
		&f.Slug, &fragmentType, &f.Title, &f.Description, &schema, &variations, &tags,
		&f.AzureWikiPath, &f.AzureWikiURL, &created, &updated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeStorage,
			fmt.Sprintf("failed to load fragment %s", slug))
	}

	f.Type = models.FragmentType(fragmentType)
	if schema.Valid {
		json.Unmarshal([]byte(schema.String), &f.Schema)
	}
	json.Unmarshal([]byte(variations), &f.Variations)
	json.Unmarshal([]byte(tags), &f.Tags)
	f.CreatedAt, _ = time.Parse(time.RFC3339, created)
	f.UpdatedAt, _ = time.Parse(time.RFC3339, updated)

	return &f, nil
}

func (s *storage) GetPattern(slug string) (*models.Pattern, error) {
	var (
		p                models.Pattern
		tags             string
		created, updated string
	)

	err := s.db.QueryRow(`
		SELECT slug, title, description, tags, azure_wiki_path, azure_wiki_url,
		       created_at, updated_at
		FROM patterns WHERE slug = ?
	`, slug).Scan(
		&p.Slug, &p.Title, &p.Description, &tags,
		&p.AzureWikiPath, &p.AzureWikiURL, &created, &updated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeStorage,
			fmt.Sprintf("failed to load pattern %s", slug))
	}

	json.Unmarshal([]byte(tags), &p.Tags)
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updated)

	rows, err := s.db.Query(`
		SELECT component_slug FROM pattern_components
		WHERE pattern_slug = ? ORDER BY position
	`, slug)
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeStorage,
			fmt.Sprintf("failed to load pattern components for %s", slug))
	}
	defer rows.Close()

	p.ComponentSlugs = []string{}
	for rows.Next() {
		var componentSlug string
		if err := rows.Scan(&componentSlug); err != nil {
			return nil, err
		}
		p.ComponentSlugs = append(p.ComponentSlugs, componentSlug)
	}

	return &p, rows.Err()
}

// InsertSyncLog appends the audit row for one run. There is no update
// path: the table is an append-only trail.
func (s *storage) InsertSyncLog(log *models.SyncLog) error {
	var errorLog any
	if len(log.ErrorLog) > 0 {
		errorLog = mustJSON(log.ErrorLog)
	}

	res, err := s.db.Exec(`
		INSERT INTO sync_logs (
			sync_started_at, sync_completed_at, status,
			pages_processed, pages_failed, error_log
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		log.SyncStartedAt.UTC().Format(time.RFC3339),
		log.SyncCompletedAt.UTC().Format(time.RFC3339),
		string(log.Status), log.PagesProcessed, log.PagesFailed, errorLog,
	)
	if err != nil {
		return common.WrapError(err, common.ErrorTypeStorage, "failed to insert sync log")
	}

	if id, err := res.LastInsertId(); err == nil {
		log.ID = id
	}
	return nil
}

func (s *storage) ListSyncLogs(limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, sync_started_at, sync_completed_at, status,
		       pages_processed, pages_failed, error_log
		FROM sync_logs ORDER BY sync_started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, common.WrapError(err, common.ErrorTypeStorage, "failed to list sync logs")
	}
	defer rows.Close()

	logs := []models.SyncLog{}
	for rows.Next() {
		log, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

func (s *storage) LatestSyncLog() (*models.SyncLog, error) {
	logs, err := s.ListSyncLogs(1)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}

func (s *storage) Counts() (int, int, int, error) {
	var components, fragments, patterns int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM components`).Scan(&components); err != nil {
		return 0, 0, 0, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM fragments`).Scan(&fragments); err != nil {
		return 0, 0, 0, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM patterns`).Scan(&patterns); err != nil {
		return 0, 0, 0, err
	}
	return components, fragments, patterns, nil
}

func scanSyncLog(rows *sql.Rows) (*models.SyncLog, error) {
	var (
		log            models.SyncLog
		started, ended string
		status         string
		errorLog       sql.NullString
	)
	if err := rows.Scan(&log.ID, &started, &ended, &status,
		&log.PagesProcessed, &log.PagesFailed, &errorLog); err != nil {
		return nil, err
	}
	log.Status = models.SyncStatus(status)
	log.SyncStartedAt, _ = time.Parse(time.RFC3339, started)
	log.SyncCompletedAt, _ = time.Parse(time.RFC3339, ended)
	if errorLog.Valid {
		json.Unmarshal([]byte(errorLog.String), &log.ErrorLog)
	}
	return &log, nil
}

// rowExists reports whether a slug-keyed row is already present. Runs
// are single-threaded, so check-then-upsert is race-free here; the table
// name is always one of our own constants.
func (s *storage) rowExists(table, slug string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE slug = ?`, table), slug,
	).Scan(&count)
	if err != nil {
		return false, common.WrapError(err, common.ErrorTypeStorage,
			fmt.Sprintf("failed to check %s existence", table))
	}
	return count > 0, nil
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
