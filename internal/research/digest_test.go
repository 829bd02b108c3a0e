package research_test

import (
	"strings"
	"testing"

	"github.com/0ld3ull/operator/internal/research"
)

func TestFormatDigest_TruncatesToFirstThreeErrors(t *testing.T) {
	d := research.Digest{
		Scraped: 5, New: 2,
		Errors: []string{"rss: one", "github: two", "arxiv: three", "reddit: four"},
	}
	out := research.FormatDigest(d)

	if strings.Contains(out, "four") {
		t.Fatalf("want only the first 3 errors shown, got %q", out)
	}
	if !strings.Contains(out, "one") || !strings.Contains(out, "three") {
		t.Fatalf("want the first 3 errors present, got %q", out)
	}
}
