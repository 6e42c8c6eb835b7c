package ports

import (
	"context"
	"time"

	"arxivwatch/internal/domain"
)

// PaperSource pulls announced papers from the configured feed locators.
// Per-locator failures are absorbed inside the source: a locator that errors
// contributes zero papers, the rest still contribute theirs.
type PaperSource interface {
	FetchAll(ctx context.Context) []domain.Paper
}

// NotificationLedger persists identifiers of papers already notified.
// Load degrades to an empty set on a missing or unreadable file; Save
// reports I/O failures to the caller.
type NotificationLedger interface {
	Load() map[string]bool
	Save(ids map[string]bool) error
}

// DocumentFetcher downloads a paper's PDF, trims it to the configured page
// limit and encodes it for transport to the summarizer.
type DocumentFetcher interface {
	Fetch(ctx context.Context, paper domain.Paper) (string, error)
}

// Summarizer generates summary text from a paper and its encoded document.
type Summarizer interface {
	Summarize(ctx context.Context, paper domain.Paper, documentBase64 string) (string, error)
}

// Notifier renders and delivers a message for one paper+summary pair.
type Notifier interface {
	Notify(ctx context.Context, paper domain.Paper, summary string) error
}

// Scheduler controls when watch runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
