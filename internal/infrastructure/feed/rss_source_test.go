package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/gofeed"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <channel>
    <title>cs.AI updates on arXiv.org</title>
    <link>https://rss.arxiv.org/rss/cs.AI</link>
    <description>cs.AI updates on the arXiv.org e-print archive.</description>
    <item>
      <title>  Sample Paper Title  </title>
      <link>https://arxiv.org/abs/2401.12345</link>
      <description>&lt;p&gt;arXiv:2401.12345v1 [cs.AI] Sample abstract text about the method.&lt;/p&gt;</description>
      <guid isPermaLink="false">https://arxiv.org/abs/2401.12345v1</guid>
      <category>cs.AI</category>
      <category>cs.LG</category>
      <pubDate>Fri, 12 Jan 2024 00:00:00 -0500</pubDate>
      <dc:creator>Alice Smith, Bob Jones</dc:creator>
      <arxiv:announce_type>new</arxiv:announce_type>
    </item>
    <item>
      <title></title>
      <link>https://arxiv.org/abs/2401.99999</link>
      <guid isPermaLink="false">https://arxiv.org/abs/2401.99999v1</guid>
    </item>
  </channel>
</rss>`

func parseSampleItem(t *testing.T) *gofeed.Item {
	t.Helper()

	parsed, err := gofeed.NewParser().ParseString(sampleFeed)
	if err != nil {
		t.Fatalf("parse sample feed: %v", err)
	}
	if len(parsed.Items) == 0 {
		t.Fatal("sample feed has no items")
	}
	return parsed.Items[0]
}

func TestNormalizeEntry(t *testing.T) {
	t.Parallel()

	paper, err := normalizeEntry(parseSampleItem(t))
	if err != nil {
		t.Fatalf("normalizeEntry returned error: %v", err)
	}

	if paper.ID != "2401.12345v1" {
		t.Fatalf("unexpected id: %s", paper.ID)
	}
	if paper.Title != "Sample Paper Title" {
		t.Fatalf("unexpected title: %q", paper.Title)
	}
	if paper.Abstract != "Sample abstract text about the method." {
		t.Fatalf("unexpected abstract: %q", paper.Abstract)
	}
	if paper.Link != "https://arxiv.org/abs/2401.12345" {
		t.Fatalf("unexpected link: %s", paper.Link)
	}
	if len(paper.Authors) != 2 || paper.Authors[0] != "Alice Smith" || paper.Authors[1] != "Bob Jones" {
		t.Fatalf("unexpected authors: %v", paper.Authors)
	}
	if len(paper.Categories) != 2 || paper.Categories[0] != "cs.AI" {
		t.Fatalf("unexpected categories: %v", paper.Categories)
	}
	if paper.AnnounceType != "new" {
		t.Fatalf("unexpected announce type: %q", paper.AnnounceType)
	}
	if paper.Published == "" {
		t.Fatal("expected published timestamp to be carried through")
	}
}

func TestNormalizeEntryRejectsMissingTitle(t *testing.T) {
	t.Parallel()

	parsed, err := gofeed.NewParser().ParseString(sampleFeed)
	if err != nil {
		t.Fatalf("parse sample feed: %v", err)
	}
	if len(parsed.Items) < 2 {
		t.Fatal("sample feed lost its malformed item")
	}

	if _, err := normalizeEntry(parsed.Items[1]); err == nil {
		t.Fatal("expected an entry without title to be rejected")
	}
}

func TestPaperID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"abs url", "http://arxiv.org/abs/2401.12345v2", "2401.12345v2"},
		{"https abs url", "https://arxiv.org/abs/2401.00001", "2401.00001"},
		{"no abs segment", "oai:arXiv.org:2401.12345v1", "oai:arXiv.org:2401.12345v1"},
		{"multiple abs segments", "https://mirror/abs/x/abs/2401.00002", "2401.00002"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := paperID(tc.raw); got != tc.want {
				t.Fatalf("paperID(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestCleanAbstract(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		summary string
		want    string
	}{
		{"html and prefix", "<p>arXiv:2401.12345v1 [cs.AI] The abstract.</p>", "The abstract."},
		{"prefix only", "arXiv:2401.12345 [stat.ML] Another abstract.", "Another abstract."},
		{"plain text", "Just an abstract.", "Just an abstract."},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := cleanAbstract(tc.summary); got != tc.want {
				t.Fatalf("cleanAbstract(%q) = %q, want %q", tc.summary, got, tc.want)
			}
		})
	}
}

func TestFetchAllIsolatesFailingLocator(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good":
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(sampleFeed))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	source := NewRSSSource(
		[]string{server.URL + "/bad", server.URL + "/good"},
		server.Client(),
		nil,
		nil,
	)

	papers := source.FetchAll(context.Background())
	if len(papers) != 1 {
		t.Fatalf("expected papers from the healthy feed only, got %d", len(papers))
	}
	if papers[0].ID != "2401.12345v1" {
		t.Fatalf("unexpected paper: %+v", papers[0])
	}
}

func TestFetchAllAllFeedsFailing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := NewRSSSource([]string{server.URL + "/a", server.URL + "/b"}, server.Client(), nil, nil)

	if papers := source.FetchAll(context.Background()); len(papers) != 0 {
		t.Fatalf("expected an empty batch, got %d papers", len(papers))
	}
}
