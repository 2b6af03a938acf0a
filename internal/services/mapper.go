package services

import (
	"fmt"
	"strings"
	"time"

	"aem-portal-sync/internal/common"
	"aem-portal-sync/internal/models"
)

// The mapper converts loosely-typed frontmatter into the fixed attribute
// set of each entity kind. Every optional field has a safe default and
// free-text enum fields fold to a closed vocabulary, so mapping failures
// are confined to a missing or mistyped id field.

// MapComponent builds a Component from page metadata. Title and
// description fall back to the body outline, then to the slug / empty
// string. Status folds to {stable, experimental, deprecated} with stable
// as the closed fallback.
func MapComponent(metadata map[string]any, outline bodyOutline, wikiPath, wikiURL string, now time.Time) (*models.Component, error) {
	slug := stringField(metadata, "component_id")
	if slug == "" {
		return nil, common.NewMappingError("component_id is missing or not a string").WithPage(wikiPath)
	}

	return &models.Component{
		Slug:        slug,
		Title:       titleFallback(metadata, outline, slug),
		Description: descriptionFallback(metadata, outline),
		Tags:        stringSliceField(metadata, "tags"),
		Status:      normalizeStatus(stringField(metadata, "status")),
		OwnerTeam:   stringField(metadata, "owner_team"),
		OwnerEmail:  stringField(metadata, "owner_email"),

		AzureWikiPath: wikiPath,
		AzureWikiURL:  wikiURL,
		FigmaLinks:    stringSliceField(metadata, "figma_links"),

		AEM: models.AEMMetadata{
			ComponentPath:       stringField(metadata, "aem_component_path"),
			DialogSchema:        mapField(metadata, "aem_dialog_schema"),
			AllowedChildren:     stringSliceField(metadata, "aem_allowed_children"),
			TemplateConstraints: mapField(metadata, "aem_template_constraints"),
			Limitations:         stringSliceField(metadata, "aem_limitations"),
		},

		LastSyncedAt:      now,
		LastUpdatedSource: models.SourceAzure,
	}, nil
}

// MapFragment builds a Fragment from page metadata. The type folds to
// {content_fragment, experience_fragment} with content_fragment as the
// fallback; schema and variations pass through as opaque data.
func MapFragment(metadata map[string]any, outline bodyOutline, wikiPath, wikiURL string) (*models.Fragment, error) {
	slug := stringField(metadata, "fragment_id")
	if slug == "" {
		return nil, common.NewMappingError("fragment_id is missing or not a string").WithPage(wikiPath)
	}

	return &models.Fragment{
		Slug:        slug,
		Type:        normalizeFragmentType(stringField(metadata, "type")),
		Title:       titleFallback(metadata, outline, slug),
		Description: descriptionFallback(metadata, outline),
		Schema:      mapField(metadata, "schema"),
		Variations:  variationsField(metadata, "variations"),
		Tags:        stringSliceField(metadata, "tags"),

		AzureWikiPath: wikiPath,
		AzureWikiURL:  wikiURL,
	}, nil
}

// MapPattern builds a Pattern from page metadata. The referenced
// component slugs keep their listed order; resolution against existing
// Component rows happens in the store.
func MapPattern(metadata map[string]any, outline bodyOutline, wikiPath, wikiURL string) (*models.Pattern, error) {
	slug := stringField(metadata, "pattern_id")
	if slug == "" {
		return nil, common.NewMappingError("pattern_id is missing or not a string").WithPage(wikiPath)
	}

	return &models.Pattern{
		Slug:           slug,
		Title:          titleFallback(metadata, outline, slug),
		Description:    descriptionFallback(metadata, outline),
		Tags:           stringSliceField(metadata, "tags"),
		ComponentSlugs: stringSliceField(metadata, "component_ids"),

		AzureWikiPath: wikiPath,
		AzureWikiURL:  wikiURL,
	}, nil
}

// normalizeStatus case-folds the free-text status against the known
// vocabulary. Anything unrecognized, including an empty value, maps to
// stable rather than an error.
func normalizeStatus(status string) models.ComponentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "experimental":
		return models.StatusExperimental
	case "deprecated":
		return models.StatusDeprecated
	default:
		return models.StatusStable
	}
}

func normalizeFragmentType(fragmentType string) models.FragmentType {
	if strings.ToLower(strings.TrimSpace(fragmentType)) == "experience_fragment" {
		return models.FragmentExperience
	}
	return models.FragmentContent
}

func titleFallback(metadata map[string]any, outline bodyOutline, slug string) string {
	if title := stringField(metadata, "title"); title != "" {
		return title
	}
	if outline.Title != "" {
		return outline.Title
	}
	return slug
}

func descriptionFallback(metadata map[string]any, outline bodyOutline) string {
	if description := stringField(metadata, "description"); description != "" {
		return description
	}
	return outline.Lead
}

func stringField(metadata map[string]any, key string) string {
	if v, ok := metadata[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// stringSliceField coerces a YAML sequence into a string list. Scalar
// entries that are not strings are rendered with %v rather than dropped;
// a missing or mistyped field yields an empty list, never nil.
func stringSliceField(metadata map[string]any, key string) []string {
	out := []string{}
	raw, ok := metadata[key].([]any)
	if !ok {
		return out
	}
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		default:
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}

func mapField(metadata map[string]any, key string) map[string]any {
	if v, ok := metadata[key].(map[string]any); ok {
		return v
	}
	return nil
}

// variationsField reads the fragment variations list. Each entry may
// carry name plus a label or description; unknown keys ride along in
// Data untouched.
func variationsField(metadata map[string]any, key string) []models.FragmentVariation {
	out := []models.FragmentVariation{}
	raw, ok := metadata[key].([]any)
	if !ok {
		return out
	}
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		variation := models.FragmentVariation{
			Name: strings.TrimSpace(asString(entry["name"])),
		}
		if label := asString(entry["label"]); label != "" {
			variation.Description = label
		}
		if description := asString(entry["description"]); description != "" {
			variation.Description = description
		}
		if data, ok := entry["data"].(map[string]any); ok {
			variation.Data = data
		}
		if variation.Name != "" {
			out = append(out, variation)
		}
	}
	return out
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
