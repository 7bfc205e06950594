package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// splitFrontmatter returns the YAML block between the leading "---" lines,
// or ok=false when the document has none.
func splitFrontmatter(doc string) (block string, ok bool) {
	doc = strings.TrimPrefix(doc, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterDelimiter {
		return "", false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			return strings.Join(lines[1:i], "\n"), true
		}
	}
	return "", false
}

// parseFrontmatter decodes the document's frontmatter into a settings map.
// A document without frontmatter yields an empty map.
func parseFrontmatter(doc string) (map[string]interface{}, error) {
	block, ok := splitFrontmatter(doc)
	if !ok || strings.TrimSpace(block) == "" {
		return map[string]interface{}{}, nil
	}

	settings := map[string]interface{}{}
	if err := yaml.Unmarshal([]byte(block), &settings); err != nil {
		return nil, err
	}
	return settings, nil
}
