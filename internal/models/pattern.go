package models

import "time"

// Pattern composes existing components in a fixed order. Order belongs to
// the relationship, not to the component, so it is carried on the
// reference.
type Pattern struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`

	// ComponentSlugs lists the composed components in display order.
	// Every slug must resolve to an existing Component row at sync time.
	ComponentSlugs []string `json:"component_slugs"`

	AzureWikiPath string `json:"azure_wiki_path,omitempty"`
	AzureWikiURL  string `json:"azure_wiki_url,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
