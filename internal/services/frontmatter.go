package services

import (
	"bytes"

	"aem-portal-sync/internal/models"

	"gopkg.in/yaml.v3"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// ParseFrontmatter splits a leading YAML frontmatter block from a wiki
// page. Parsing is best-effort: an absent, unterminated or malformed
// block yields an empty metadata map and the original text, never an
// error, so one badly authored page cannot fail its pipeline here.
func ParseFrontmatter(raw string) models.ParsedPage {
	metadata, body := splitFrontmatter([]byte(raw))
	if metadata == nil {
		metadata = map[string]any{}
	}
	return models.ParsedPage{
		Metadata: metadata,
		Body:     string(body),
	}
}

// splitFrontmatter returns the parsed header map and the remaining body.
// The block must open with "---" on the first line (a UTF-8 BOM is
// tolerated) and close with a matching "---" line; CRLF endings are
// accepted.
func splitFrontmatter(data []byte) (map[string]any, []byte) {
	if len(data) == 0 {
		return nil, data
	}

	trimmed := data
	if bytes.HasPrefix(trimmed, utf8BOM) {
		trimmed = trimmed[len(utf8BOM):]
	}

	var rest []byte
	switch {
	case bytes.HasPrefix(trimmed, []byte("---\r\n")):
		rest = trimmed[len("---\r\n"):]
	case bytes.HasPrefix(trimmed, []byte("---\n")):
		rest = trimmed[len("---\n"):]
	default:
		return nil, data
	}

	closings := [][]byte{
		[]byte("\n---\r\n"),
		[]byte("\n---\n"),
		[]byte("\r\n---\n"),
		[]byte("\n---"),
	}
	endIdx := -1
	endMarkerLen := 0
	for _, m := range closings {
		if i := bytes.Index(rest, m); i >= 0 {
			endIdx = i
			endMarkerLen = len(m)
			break
		}
	}
	if endIdx < 0 {
		// Unterminated block: treat as no frontmatter.
		return nil, data
	}

	headerBytes := rest[:endIdx]
	body := rest[endIdx+endMarkerLen:]

	var metadata map[string]any
	if err := yaml.Unmarshal(headerBytes, &metadata); err != nil {
		// Malformed YAML is treated as no metadata.
		return nil, data
	}

	body = bytes.TrimLeft(body, "\r\n")
	return metadata, body
}
