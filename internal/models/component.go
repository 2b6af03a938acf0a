package models

import "time"

// ComponentStatus is the lifecycle state of a catalog component.
type ComponentStatus string

const (
	StatusStable       ComponentStatus = "stable"
	StatusExperimental ComponentStatus = "experimental"
	StatusDeprecated   ComponentStatus = "deprecated"
)

// UpdateSource records where the last write to a component came from.
type UpdateSource string

const (
	SourceAzure  UpdateSource = "azure"
	SourceManual UpdateSource = "manual"
)

// AEMMetadata is the authoring-time metadata block for a component.
// DialogSchema and TemplateConstraints are carried as opaque structured
// data; their internal shape is validated by the consuming catalog, not
// by the sync.
type AEMMetadata struct {
	ComponentPath       string         `json:"component_path,omitempty"`
	DialogSchema        map[string]any `json:"dialog_schema,omitempty"`
	AllowedChildren     []string       `json:"allowed_children"`
	TemplateConstraints map[string]any `json:"template_constraints,omitempty"`
	Limitations         []string       `json:"limitations"`
}

// VisualAssets holds rendered screenshot/thumbnail URLs. These are
// written by the asset upload path, never by the sync.
type VisualAssets struct {
	ThumbnailURL         string `json:"thumbnail_url,omitempty"`
	ScreenshotAuthorURL  string `json:"screenshot_author_url,omitempty"`
	ScreenshotPublishURL string `json:"screenshot_published_url,omitempty"`
}

// Component is the canonical catalog record for one AEM UI component.
// Slug is the stable business key; it never changes once created.
type Component struct {
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Status      ComponentStatus `json:"status"`
	OwnerTeam   string          `json:"owner_team,omitempty"`
	OwnerEmail  string          `json:"owner_email,omitempty"`

	AzureWikiPath string   `json:"azure_wiki_path,omitempty"`
	AzureWikiURL  string   `json:"azure_wiki_url,omitempty"`
	FigmaLinks    []string `json:"figma_links"`

	AEM          AEMMetadata   `json:"aem_metadata"`
	VisualAssets *VisualAssets `json:"visual_assets,omitempty"`

	LastSyncedAt      time.Time    `json:"last_synced_at,omitempty"`
	LastUpdatedSource UpdateSource `json:"last_updated_source,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
