package research_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0ld3ull/operator/internal/research"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Example Feed</title>
<item>
  <title>CBDC rollout begins</title>
  <link>https://example.com/cbdc</link>
  <description>&lt;p&gt;Digital ID required&lt;/p&gt;</description>
  <guid>https://example.com/cbdc</guid>
  <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
</item>
</channel></rss>`

func TestRSSScraper_ParsesItemsWithStableSourceID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	scraper := research.NewRSSScraper([]research.Feed{{Name: "example", URL: server.URL}}, nil)
	items, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("want one parsed item, got %d", len(items))
	}
	item := items[0]
	if item.SourceID != "example:https://example.com/cbdc" {
		t.Fatalf("want a stable source_id derived from feed name + guid, got %q", item.SourceID)
	}
	if item.Content != "Digital ID required" {
		t.Fatalf("want HTML stripped from the description, got %q", item.Content)
	}
}

func TestRSSScraper_FeedErrorIsLoggedNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	scraper := research.NewRSSScraper([]research.Feed{{Name: "broken", URL: server.URL}}, nil)
	items, err := scraper.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape should not fail the whole cycle on a feed error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("want no items from a failing feed, got %+v", items)
	}
}
