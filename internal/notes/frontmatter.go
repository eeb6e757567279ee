// ABOUTME: YAML frontmatter parsing for markdown notes
// ABOUTME: Converts the leading --- block into typed note metadata
package notes

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harper/vaultsearch/internal/models"
)

// splitFrontmatter finds a leading frontmatter block. It returns the YAML
// source and the 1-based line number where the body starts; bodyStart is 1
// when the note has no frontmatter.
func splitFrontmatter(lines []string) (string, int) {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", 1
	}
	for i := 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "---" || trimmed == "..." {
			return strings.Join(lines[1:i], "\n"), i + 2
		}
	}
	// unterminated: treat the whole file as body
	return "", 1
}

// parseFrontmatter decodes YAML frontmatter into metadata
func parseFrontmatter(src string) (models.Metadata, error) {
	if strings.TrimSpace(src) == "" {
		return models.Metadata{}, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(src), &raw); err != nil {
		return models.Metadata{}, fmt.Errorf("parsing frontmatter: %w", err)
	}

	meta := make(models.Metadata, len(raw))
	for k, v := range raw {
		meta[k] = normalizeValue(k, v)
	}
	return meta, nil
}

// normalizeValue applies per-key conventions: tags and aliases are lists even
// when written as a single scalar.
func normalizeValue(key string, v any) models.MetaValue {
	switch key {
	case "tags", "aliases":
		if s, ok := v.(string); ok {
			var items []string
			for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
				items = append(items, strings.TrimPrefix(part, "#"))
			}
			return models.ListValue(items...)
		}
	}
	return models.MetaFromAny(v)
}
