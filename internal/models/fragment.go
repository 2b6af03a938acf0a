package models

import "time"

// FragmentType distinguishes AEM content fragments from experience
// fragments.
type FragmentType string

const (
	FragmentContent    FragmentType = "content_fragment"
	FragmentExperience FragmentType = "experience_fragment"
)

// FragmentVariation is one named variation of a fragment.
type FragmentVariation struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Fragment is the canonical catalog record for an AEM fragment, keyed by
// slug. Schema is opaque field-definition data from the wiki.
type Fragment struct {
	Slug        string              `json:"slug"`
	Type        FragmentType        `json:"type"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Schema      map[string]any      `json:"schema,omitempty"`
	Variations  []FragmentVariation `json:"variations"`
	Tags        []string            `json:"tags"`

	AzureWikiPath string `json:"azure_wiki_path,omitempty"`
	AzureWikiURL  string `json:"azure_wiki_url,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
