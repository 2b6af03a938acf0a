package services

import "aem-portal-sync/internal/models"

// discriminants is the ordered check list mapping an id field to a page
// kind. Evaluation is strictly top-to-bottom so a page that carries more
// than one id (a data-entry mistake) always classifies the same way:
// component wins over fragment wins over pattern.
var discriminants = []struct {
	field string
	kind  models.PageKind
}{
	{"component_id", models.PageKindComponent},
	{"fragment_id", models.PageKindFragment},
	{"pattern_id", models.PageKindPattern},
}

// Classify decides which entity kind a page's metadata describes. Pages
// with no recognized id field are skipped, not failed.
func Classify(metadata map[string]any) models.PageKind {
	for _, d := range discriminants {
		if id, ok := metadata[d.field].(string); ok && id != "" {
			return d.kind
		}
	}
	return models.PageKindSkip
}
