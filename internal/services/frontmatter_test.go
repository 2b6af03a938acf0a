package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter_ValidBlock(t *testing.T) {
	raw := "---\ncomponent_id: hero-banner\nstatus: Experimental\ntags:\n  - marketing\n  - hero\n---\n# Hero Banner\n\nBody text here.\n"

	page := ParseFrontmatter(raw)

	require.NotNil(t, page.Metadata)
	assert.Equal(t, "hero-banner", page.Metadata["component_id"])
	assert.Equal(t, "Experimental", page.Metadata["status"])
	assert.Equal(t, []any{"marketing", "hero"}, page.Metadata["tags"])
	assert.Equal(t, "# Hero Banner\n\nBody text here.\n", page.Body)
}

func TestParseFrontmatter_NoBlock(t *testing.T) {
	raw := "# Just a Page\n\nNo frontmatter at all.\n"

	page := ParseFrontmatter(raw)

	require.NotNil(t, page.Metadata)
	assert.Empty(t, page.Metadata)
	assert.Equal(t, raw, page.Body)
}

func TestParseFrontmatter_EmptyContent(t *testing.T) {
	page := ParseFrontmatter("")

	require.NotNil(t, page.Metadata)
	assert.Empty(t, page.Metadata)
	assert.Empty(t, page.Body)
}

func TestParseFrontmatter_Unterminated(t *testing.T) {
	raw := "---\ncomponent_id: hero-banner\nstatus: stable\n\n# Heading without closing marker\n"

	page := ParseFrontmatter(raw)

	// An unterminated block is not frontmatter; the page keeps its text.
	assert.Empty(t, page.Metadata)
	assert.Equal(t, raw, page.Body)
}

func TestParseFrontmatter_MalformedYAML(t *testing.T) {
	raw := "---\ncomponent_id: [unclosed\n---\n# Body\n"

	page := ParseFrontmatter(raw)

	assert.Empty(t, page.Metadata)
	assert.Equal(t, raw, page.Body)
}

func TestParseFrontmatter_BOMAndCRLF(t *testing.T) {
	raw := "\xef\xbb\xbf---\r\nfragment_id: promo-card\r\ntype: experience_fragment\r\n---\r\n# Promo Card\r\n"

	page := ParseFrontmatter(raw)

	assert.Equal(t, "promo-card", page.Metadata["fragment_id"])
	assert.Equal(t, "experience_fragment", page.Metadata["type"])
	assert.Contains(t, page.Body, "# Promo Card")
}

func TestParseFrontmatter_MarkerNotOnFirstLine(t *testing.T) {
	raw := "intro text\n---\ncomponent_id: hero-banner\n---\nbody\n"

	page := ParseFrontmatter(raw)

	assert.Empty(t, page.Metadata)
	assert.Equal(t, raw, page.Body)
}

func TestParseFrontmatter_HorizontalRuleInBody(t *testing.T) {
	raw := "---\npattern_id: checkout-flow\ncomponent_ids:\n  - cart-summary\n---\nAbove the rule.\n\n---\n\nBelow the rule.\n"

	page := ParseFrontmatter(raw)

	// Only the first closing marker ends the block; later rules belong to
	// the body.
	assert.Equal(t, "checkout-flow", page.Metadata["pattern_id"])
	assert.Contains(t, page.Body, "Below the rule.")
}
