package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"arxivwatch/internal/domain"
	"arxivwatch/internal/ports"
)

// arXiv RSS abstracts open with "arXiv:2401.12345v1 [cs.AI]" before the text.
var abstractPrefixExpr = regexp.MustCompile(`^arXiv:\d+\.\d+v?\d*\s*\[[^\]]+\]\s*`)

// RSSSource fetches papers from arXiv RSS feeds.
type RSSSource struct {
	locators []string
	parser   *gofeed.Parser
	limiter  *rate.Limiter
	logger   *slog.Logger
}

var _ ports.PaperSource = (*RSSSource)(nil)

// NewRSSSource wires a feed parser over the configured locators. The limiter
// throttles requests against arXiv and may be shared with the PDF fetcher.
func NewRSSSource(locators []string, client *http.Client, limiter *rate.Limiter, logger *slog.Logger) *RSSSource {
	parser := gofeed.NewParser()
	parser.UserAgent = "arxivwatch/1.0"
	if client != nil {
		parser.Client = client
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RSSSource{
		locators: locators,
		parser:   parser,
		limiter:  limiter,
		logger:   logger,
	}
}

// FetchAll pulls papers from every configured feed. A feed that fails to
// fetch or parse contributes zero papers; the remaining feeds still count.
func (s *RSSSource) FetchAll(ctx context.Context) []domain.Paper {
	var all []domain.Paper
	for _, locator := range s.locators {
		papers, err := s.fetchFeed(ctx, locator)
		if err != nil {
			s.logger.Error("failed to fetch feed", "url", locator, "error", err)
			continue
		}
		s.logger.Info("fetched papers from feed", "url", locator, "count", len(papers))
		all = append(all, papers...)
	}
	s.logger.Info("fetched all papers", "total_count", len(all))
	return all
}

func (s *RSSSource) fetchFeed(ctx context.Context, url string) ([]domain.Paper, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("await rate limiter: %w", err)
		}
	}

	parsed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	papers := make([]domain.Paper, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		paper, err := normalizeEntry(item)
		if err != nil {
			s.logger.Error("failed to parse entry", "entry_id", item.GUID, "error", err)
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// normalizeEntry validates the loosely-typed feed item once and produces the
// strict Paper entity; missing-field ambiguity stays behind this boundary.
func normalizeEntry(item *gofeed.Item) (domain.Paper, error) {
	rawID := item.GUID
	if rawID == "" {
		rawID = item.Link
	}
	if rawID == "" {
		return domain.Paper{}, fmt.Errorf("entry has neither id nor link")
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return domain.Paper{}, fmt.Errorf("entry %s has no title", rawID)
	}

	return domain.Paper{
		ID:           paperID(rawID),
		Title:        title,
		Abstract:     cleanAbstract(item.Description),
		Link:         item.Link,
		Published:    item.Published,
		Authors:      entryAuthors(item),
		Categories:   item.Categories,
		AnnounceType: announceType(item),
	}, nil
}

// paperID extracts the arXiv identifier from a canonical abs URL; anything
// without "/abs/" is returned unchanged.
func paperID(raw string) string {
	if idx := strings.LastIndex(raw, "/abs/"); idx >= 0 {
		return raw[idx+len("/abs/"):]
	}
	return raw
}

// cleanAbstract strips HTML tags and the leading arXiv id prefix from the
// summary text.
func cleanAbstract(summary string) string {
	if summary == "" {
		return ""
	}
	text := summary
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary)); err == nil {
		text = doc.Text()
	}
	text = abstractPrefixExpr.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func entryAuthors(item *gofeed.Item) []string {
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return splitCreators(item.DublinCoreExt.Creator)
	}

	var authors []string
	for _, person := range item.Authors {
		if person != nil && person.Name != "" {
			authors = append(authors, person.Name)
		}
	}
	if len(authors) == 0 && item.Author != nil && item.Author.Name != "" {
		authors = []string{item.Author.Name}
	}
	return authors
}

// splitCreators handles feeds that pack every author into one dc:creator
// element separated by commas.
func splitCreators(creators []string) []string {
	var out []string
	for _, creator := range creators {
		for _, name := range strings.Split(creator, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func announceType(item *gofeed.Item) string {
	ns, ok := item.Extensions["arxiv"]
	if !ok {
		return ""
	}
	values, ok := ns["announce_type"]
	if !ok || len(values) == 0 {
		return ""
	}
	return values[0].Value
}
