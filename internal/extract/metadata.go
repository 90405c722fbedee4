package extract

import (
	"strings"
	"unicode"
)

// maxTitleLen caps derived titles at a headline-ish length.
const maxTitleLen = 80

// sourceAppMarkers maps text fragments that identify the app a screenshot or
// export came from. Checked case-insensitively, first match wins.
var sourceAppMarkers = []struct {
	marker string
	app    string
}{
	{"whatsapp", "whatsapp"},
	{"telegram", "telegram"},
	{"slack", "slack"},
	{"discord", "discord"},
	{"messages", "imessage"},
	{"gmail", "gmail"},
	{"outlook", "outlook"},
	{"twitter", "twitter"},
	{"instagram", "instagram"},
}

// Metadata holds the heuristic annotations derived from extracted text.
type Metadata struct {
	// Title is the first non-empty line, truncated at a word boundary.
	Title string

	// Tags are the hashtags found in the text, lowercased, without '#'.
	Tags []string

	// SourceApp is a best-effort guess at the application the content came
	// from. Empty when no marker matched.
	SourceApp string
}

// deriveMetadata computes [Metadata] from extracted text.
func deriveMetadata(text string) Metadata {
	md := Metadata{
		Title:     deriveTitle(text),
		Tags:      deriveTags(text),
		SourceApp: detectSourceApp(text),
	}
	return md
}

// deriveTitle returns the first non-empty line, truncated to maxTitleLen at a
// word boundary.
func deriveTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) <= maxTitleLen {
			return line
		}
		cut := strings.LastIndex(line[:maxTitleLen], " ")
		if cut <= 0 {
			cut = maxTitleLen
		}
		return line[:cut] + "…"
	}
	return ""
}

// deriveTags collects hashtags. Duplicates collapse, order of first
// appearance is kept.
func deriveTags(text string) []string {
	var tags []string
	seen := map[string]struct{}{}
	for _, field := range strings.Fields(text) {
		if !strings.HasPrefix(field, "#") || len(field) < 2 {
			continue
		}
		tag := strings.ToLower(strings.TrimFunc(field[1:], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// detectSourceApp returns the first matching app marker, or "".
func detectSourceApp(text string) string {
	lower := strings.ToLower(text)
	for _, m := range sourceAppMarkers {
		if strings.Contains(lower, m.marker) {
			return m.app
		}
	}
	return ""
}
