package pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/time/rate"

	"arxivwatch/internal/domain"
	"arxivwatch/internal/ports"
)

// Fetcher downloads a paper's PDF and prepares it for the summarizer.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	maxPages int
	logger   *slog.Logger
}

var _ ports.DocumentFetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; maxPages bounds what is sent downstream.
func NewFetcher(client *http.Client, limiter *rate.Limiter, maxPages int, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fetcher{client: client, limiter: limiter, maxPages: maxPages, logger: logger}
}

// DocumentURL converts an arXiv abstract URL to its PDF URL.
func DocumentURL(abstractURL string) string {
	return strings.ReplaceAll(abstractURL, "/abs/", "/pdf/") + ".pdf"
}

// Fetch downloads the paper's document, trims it to the page limit and
// returns it base64-encoded.
func (f *Fetcher) Fetch(ctx context.Context, paper domain.Paper) (string, error) {
	url := DocumentURL(paper.Link)

	raw, err := f.download(ctx, paper.ID, url)
	if err != nil {
		return "", err
	}

	trimmed, err := trimPages(raw, f.maxPages)
	if err != nil {
		return "", fmt.Errorf("trim pdf %s: %w", paper.ID, err)
	}

	return base64.StdEncoding.EncodeToString(trimmed), nil
}

func (f *Fetcher) download(ctx context.Context, paperID, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("await rate limiter: %w", err)
		}
	}

	f.logger.Info("downloading pdf", "paper_id", paperID, "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "arxivwatch/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pdf server returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}

	f.logger.Info("downloaded pdf", "paper_id", paperID, "size_bytes", len(raw))
	return raw, nil
}

// trimPages keeps the first maxPages pages. A shorter document passes
// through unchanged.
func trimPages(raw []byte, maxPages int) ([]byte, error) {
	if maxPages <= 0 {
		return raw, nil
	}

	count, err := api.PageCount(bytes.NewReader(raw), nil)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	if count <= maxPages {
		return raw, nil
	}

	var buf bytes.Buffer
	pages := []string{fmt.Sprintf("1-%d", maxPages)}
	if err := api.Trim(bytes.NewReader(raw), &buf, pages, nil); err != nil {
		return nil, fmt.Errorf("trim to %d pages: %w", maxPages, err)
	}
	return buf.Bytes(), nil
}
