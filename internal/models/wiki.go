package models

// WikiPageRef identifies one page in the wiki tree. Refs are ephemeral;
// they exist only for the duration of a sync run.
type WikiPageRef struct {
	ID          int    `json:"id"`
	Path        string `json:"path"`
	GitItemPath string `json:"gitItemPath,omitempty"`
}

// ParsedPage is a wiki page split into its frontmatter metadata and the
// remaining markdown body. A page without a frontmatter block has an
// empty Metadata map.
type ParsedPage struct {
	Metadata map[string]any `json:"metadata"`
	Body     string         `json:"body"`
}

// PageKind is the entity kind a wiki page describes, decided by the
// discriminant id field present in its frontmatter.
type PageKind string

const (
	PageKindComponent PageKind = "component"
	PageKindFragment  PageKind = "fragment"
	PageKindPattern   PageKind = "pattern"
	// PageKindSkip marks pages with no recognized id field. Skipped pages
	// are not failures.
	PageKindSkip PageKind = "skip"
)

// ChangeKind labels the effect of an upsert relative to the previous
// snapshot of the same page.
type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeUpdated   ChangeKind = "updated"
	ChangeUnchanged ChangeKind = "unchanged"
)
