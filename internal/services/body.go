package services

import (
	"strings"

	"github.com/yuin/goldmark"
	gm_ast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// bodyOutline is what the mapper can fall back on when frontmatter omits
// title or description: the page's first H1 and the paragraph that
// follows it.
type bodyOutline struct {
	Title string
	Lead  string
}

// ExtractBodyOutline walks the markdown body with goldmark and returns
// the first level-1 heading and the first paragraph after it. Either
// field may be empty; callers decide their own fallbacks.
func ExtractBodyOutline(body string) bodyOutline {
	data := []byte(body)
	if len(strings.TrimSpace(body)) == 0 {
		return bodyOutline{}
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(data))

	var outline bodyOutline
	seenTitle := false

	_ = gm_ast.Walk(doc, func(n gm_ast.Node, entering bool) (gm_ast.WalkStatus, error) {
		if !entering {
			return gm_ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gm_ast.Heading:
			if !seenTitle && node.Level == 1 {
				outline.Title = strings.TrimSpace(string(node.Text(data)))
				seenTitle = true
				return gm_ast.WalkSkipChildren, nil
			}
			if seenTitle && outline.Lead == "" {
				// A second heading before any paragraph means no lead.
				return gm_ast.WalkStop, nil
			}
		case *gm_ast.Paragraph:
			if seenTitle && outline.Lead == "" {
				outline.Lead = collapseWhitespace(string(node.Text(data)))
				return gm_ast.WalkStop, nil
			}
		}
		return gm_ast.WalkContinue, nil
	})

	return outline
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
