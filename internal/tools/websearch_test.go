package tools

import (
	"context"
	"strings"
	"testing"
)

// ── SearchAvailable ──────────────────────────────────────────────────────────

func TestSearchAvailable_AlwaysReturnsTrue(t *testing.T) {
	// The capability is always offered; a missing key degrades at call time.
	if !SearchAvailable() {
		t.Error("expected SearchAvailable()=true")
	}
}

// ── Search ───────────────────────────────────────────────────────────────────

func TestSearch_MissingAPIKeyReturnsError(t *testing.T) {
	t.Setenv("BOCHA_API_KEY", "")
	_, err := Search(context.Background(), "golang concurrency")
	if err == nil {
		t.Fatal("expected an error when BOCHA_API_KEY is unset")
	}
	if !strings.Contains(err.Error(), "BOCHA_API_KEY") {
		t.Errorf("error should name the missing key, got %v", err)
	}
}

// ── formatBochaResult ────────────────────────────────────────────────────────

func TestFormatBochaResult_EmptyPagesReturnsNoResults(t *testing.T) {
	// Returns a "No results found for: <query>" message when pages slice is empty
	var r bochaResponse
	got := formatBochaResult("golang", &r)
	if !strings.Contains(got, "No results found") || !strings.Contains(got, "golang") {
		t.Errorf("got %q, want a no-results message naming the query", got)
	}
}

func TestFormatBochaResult_IncludesTitleSnippetURL(t *testing.T) {
	var r bochaResponse
	r.WebPages.Value = []bochaWebPage{
		{Name: "Go Blog", URL: "https://go.dev/blog", Snippet: "Official Go news."},
	}
	got := formatBochaResult("go", &r)
	for _, want := range []string{"Go Blog", "Official Go news.", "https://go.dev/blog"} {
		if !strings.Contains(got, want) {
			t.Errorf("result missing %q:\n%s", want, got)
		}
	}
}

func TestFormatBochaResult_PrefersSummaryOverSnippet(t *testing.T) {
	var r bochaResponse
	r.WebPages.Value = []bochaWebPage{
		{Name: "Page", URL: "https://example.com", Snippet: "short snippet", Summary: "long summary"},
	}
	got := formatBochaResult("q", &r)
	if !strings.Contains(got, "long summary") {
		t.Errorf("expected summary to be used, got:\n%s", got)
	}
	if strings.Contains(got, "short snippet") {
		t.Errorf("snippet should be replaced by summary, got:\n%s", got)
	}
}

func TestFormatBochaResult_TruncatesDatePublishedToDay(t *testing.T) {
	var r bochaResponse
	r.WebPages.Value = []bochaWebPage{
		{Name: "Page", URL: "https://example.com", DatePublished: "2024-03-15T08:00:00Z"},
	}
	got := formatBochaResult("q", &r)
	if !strings.Contains(got, "2024-03-15 ") {
		t.Errorf("expected YYYY-MM-DD date prefix, got:\n%s", got)
	}
	if strings.Contains(got, "T08:00:00Z") {
		t.Errorf("time component should be dropped, got:\n%s", got)
	}
}

func TestFormatBochaResult_OmitsDateWhenEmpty(t *testing.T) {
	var r bochaResponse
	r.WebPages.Value = []bochaWebPage{
		{Name: "Page", URL: "https://example.com"},
	}
	got := formatBochaResult("q", &r)
	lines := strings.Split(got, "\n")
	last := lines[len(lines)-1]
	if last != "https://example.com" {
		t.Errorf("expected bare URL line when date is empty, got %q", last)
	}
}

func TestFormatBochaResult_SeparatesResultsWithBlankLine(t *testing.T) {
	var r bochaResponse
	r.WebPages.Value = []bochaWebPage{
		{Name: "First", URL: "https://a.example"},
		{Name: "Second", URL: "https://b.example"},
	}
	got := formatBochaResult("q", &r)
	if !strings.Contains(got, "https://a.example\n\nSecond") {
		t.Errorf("expected a blank line between results, got:\n%s", got)
	}
}

func TestFormatBochaResult_CapsAtMaxResults(t *testing.T) {
	var r bochaResponse
	for i := 0; i < bochaMaxResults+3; i++ {
		r.WebPages.Value = append(r.WebPages.Value, bochaWebPage{
			Name: "Page", URL: "https://example.com",
		})
	}
	got := formatBochaResult("q", &r)
	if n := strings.Count(got, "https://example.com"); n != bochaMaxResults {
		t.Errorf("expected %d results, got %d:\n%s", bochaMaxResults, n, got)
	}
}
