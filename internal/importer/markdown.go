// Package importer turns Markdown notes into memories for bulk capture.
// Notes may carry YAML frontmatter for date, tags, and type; inline #hashtags
// in the body are merged into the focus tags.
package importer

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keepsake-app/keepsake/pkg/types"
)

// ParsedNote is one Markdown file converted to a capture candidate.
type ParsedNote struct {
	// Title comes from frontmatter, the first H1 heading, or the filename.
	Title string

	// Content is the Markdown body with frontmatter stripped.
	Content string

	// FocusTags merges frontmatter tags with inline #hashtags.
	FocusTags []string

	// LinkURL is set when the frontmatter declares a link note.
	LinkURL string

	// CreatedAt comes from the frontmatter date field, zero when absent.
	CreatedAt time.Time
}

// ParseNote parses a single Markdown file's content. The relative path
// supplies the fallback title.
func ParseNote(content []byte, relativePath string) (*ParsedNote, error) {
	fm, body, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("frontmatter parse error in %s: %w", relativePath, err)
	}

	title := extractString(fm, "title", "")
	if title == "" {
		if h1 := extractH1(body); h1 != "" {
			title = h1
		} else {
			title = titleFromPath(relativePath)
		}
	}

	tags := mergeTags(extractTags(fm), extractInlineTags(body))

	return &ParsedNote{
		Title:     title,
		Content:   strings.TrimSpace(body),
		FocusTags: tags,
		LinkURL:   extractString(fm, "url", ""),
		CreatedAt: extractTimestamp(fm),
	}, nil
}

// Memory converts the parsed note into a memory record. Notes whose
// frontmatter carries a url become link memories; everything else is text.
// An empty body falls back to the title so the record stays valid.
func (n *ParsedNote) Memory() *types.Memory {
	content := n.Content
	if content == "" {
		content = n.Title
	}

	m := &types.Memory{
		Content:     content,
		ContentType: types.ContentText,
		FocusTags:   strings.Join(n.FocusTags, " "),
		CreatedAt:   n.CreatedAt,
	}
	if n.LinkURL != "" {
		m.ContentType = types.ContentLink
		m.LinkURL = n.LinkURL
		m.LinkTitle = n.Title
	}
	return m
}

// splitFrontmatter separates YAML frontmatter (between --- delimiters) from
// the Markdown body. Returns an empty map and the full text when no
// frontmatter is found.
func splitFrontmatter(text string) (map[string]interface{}, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return map[string]interface{}{}, text, nil
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 {
		// No closing delimiter, treat the entire file as body.
		return map[string]interface{}{}, text, nil
	}

	fmText := strings.Join(lines[1:closeIdx], "\n")
	fm := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
		return map[string]interface{}{}, text, fmt.Errorf("invalid YAML: %w", err)
	}

	body := strings.Join(lines[closeIdx+1:], "\n")
	return fm, body, nil
}

// titleFromPath derives a human-readable title from the file name.
func titleFromPath(rel string) string {
	base := filepath.Base(rel)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

// extractH1 returns the text of the first ATX heading (# ...) in the body.
func extractH1(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// extractTags reads tags from frontmatter. Handles both list and
// comma-separated string forms.
func extractTags(fm map[string]interface{}) []string {
	raw, ok := fm["tags"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []interface{}:
		var tags []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	case string:
		if v == "" {
			return nil
		}
		var tags []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		return tags
	}
	return nil
}

// extractTimestamp reads a date field from frontmatter and attempts several
// common layouts.
func extractTimestamp(fm map[string]interface{}) time.Time {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
	}

	for _, key := range []string{"date", "created", "created_at"} {
		raw, ok := fm[key]
		if !ok {
			continue
		}
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case time.Time:
			return v
		default:
			s = fmt.Sprintf("%v", v)
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// extractString pulls a string value from frontmatter by key with a default.
func extractString(fm map[string]interface{}, key, defaultVal string) string {
	v, ok := fm[key]
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return defaultVal
}

// inlineTagRe finds #hashtag patterns in body text.
var inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// extractInlineTags finds #hashtag patterns in body text.
func extractInlineTags(body string) []string {
	matches := inlineTagRe.FindAllStringSubmatch(body, -1)
	var tags []string
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}

// mergeTags combines tag lists, lowercasing and dropping duplicates while
// keeping first-seen order.
func mergeTags(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, tag := range list {
			key := strings.ToLower(strings.TrimSpace(tag))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}
