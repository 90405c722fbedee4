package extract

import (
	"strings"
	"testing"
)

// TestDeriveTitle_FirstNonEmptyLine verifies leading blank lines are skipped.
func TestDeriveTitle_FirstNonEmptyLine(t *testing.T) {
	text := "\n\n  Shopping list  \nmilk\neggs"
	if got := deriveTitle(text); got != "Shopping list" {
		t.Errorf("deriveTitle = %q, want %q", got, "Shopping list")
	}
}

// TestDeriveTitle_TruncatesAtWordBoundary verifies long lines are cut at a
// space and marked with an ellipsis.
func TestDeriveTitle_TruncatesAtWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 30)
	got := deriveTitle(text)
	if len(got) > maxTitleLen+len("…") {
		t.Errorf("title length = %d, want <= %d", len(got), maxTitleLen+len("…"))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated title %q missing ellipsis", got)
	}
	if strings.Contains(strings.TrimSuffix(got, "…"), "wor…") {
		t.Errorf("title cut mid-word: %q", got)
	}
}

// TestDeriveTags_CollectsHashtags verifies dedup and punctuation trimming.
func TestDeriveTags_CollectsHashtags(t *testing.T) {
	text := "trip notes #travel #Japan. planning #travel again"
	tags := deriveTags(text)
	if len(tags) != 2 {
		t.Fatalf("got %d tags %v, want 2", len(tags), tags)
	}
	if tags[0] != "travel" || tags[1] != "japan" {
		t.Errorf("tags = %v, want [travel japan]", tags)
	}
}

// TestDeriveTags_NoHashtags verifies plain text yields no tags.
func TestDeriveTags_NoHashtags(t *testing.T) {
	if tags := deriveTags("nothing tagged here # alone"); len(tags) != 0 {
		t.Errorf("tags = %v, want none", tags)
	}
}

// TestDetectSourceApp verifies marker matching is case-insensitive and the
// absence of markers yields empty.
func TestDetectSourceApp(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Forwarded from WhatsApp chat", "whatsapp"},
		{"posted in #general on Slack", "slack"},
		{"an ordinary note", ""},
	}
	for _, tc := range cases {
		if got := detectSourceApp(tc.text); got != tc.want {
			t.Errorf("detectSourceApp(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

// TestDeriveMetadata_Combined smoke-tests the full derivation.
func TestDeriveMetadata_Combined(t *testing.T) {
	md := deriveMetadata("Dinner plan\nbook table #friday\nsent via Telegram")
	if md.Title != "Dinner plan" {
		t.Errorf("Title = %q", md.Title)
	}
	if len(md.Tags) != 1 || md.Tags[0] != "friday" {
		t.Errorf("Tags = %v", md.Tags)
	}
	if md.SourceApp != "telegram" {
		t.Errorf("SourceApp = %q", md.SourceApp)
	}
}
