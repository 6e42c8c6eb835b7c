package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"arxivwatch/internal/domain"
	"arxivwatch/internal/ports"
)

// WatcherDeps wires all driven adapters into the watch orchestration.
type WatcherDeps struct {
	Source     ports.PaperSource
	Ledger     ports.NotificationLedger
	Fetcher    ports.DocumentFetcher
	Summarizer ports.Summarizer
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Watcher implements one watch cycle: fetch feeds, filter against the
// ledger, run the per-paper pipeline with isolated failures, persist.
type Watcher struct {
	source     ports.PaperSource
	ledger     ports.NotificationLedger
	fetcher    ports.DocumentFetcher
	summarizer ports.Summarizer
	notifier   ports.Notifier
	logger     *slog.Logger
}

// NewWatcher constructs the orchestration component.
func NewWatcher(deps WatcherDeps) *Watcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		source:     deps.Source,
		ledger:     deps.Ledger,
		fetcher:    deps.Fetcher,
		summarizer: deps.Summarizer,
		notifier:   deps.Notifier,
		logger:     logger,
	}
}

// Run executes one watch cycle. Per-paper failures are absorbed and counted;
// the returned error is non-nil only for fatal conditions, currently a
// failed ledger save.
func (w *Watcher) Run(ctx context.Context) (domain.RunSummary, error) {
	var summary domain.RunSummary
	if w.source == nil || w.ledger == nil || w.fetcher == nil || w.summarizer == nil || w.notifier == nil {
		return summary, fmt.Errorf("watcher is not fully wired")
	}

	logger := w.logger.With("run_id", uuid.NewString())

	notified := w.ledger.Load()
	summary.FirstRun = len(notified) == 0

	papers := w.source.FetchAll(ctx)
	summary.Fetched = len(papers)
	if len(papers) == 0 {
		logger.Info("no papers found in feeds")
		return summary, nil
	}

	// Two feeds may legitimately announce the same paper; collapse the batch
	// before the ledger filter so it is processed as one logical item.
	papers = collapseDuplicates(papers)

	newPapers := make([]domain.Paper, 0, len(papers))
	for _, paper := range papers {
		if !notified[paper.ID] {
			newPapers = append(newPapers, paper)
		}
	}
	summary.New = len(newPapers)

	logger.Info("filtered papers",
		"total_papers", len(papers),
		"new_papers", len(newPapers),
		"is_first_run", summary.FirstRun,
	)

	toProcess := newPapers
	if summary.FirstRun && len(newPapers) > 0 {
		// A fresh ledger against an already-populated feed must not email the
		// whole backlog. One representative notification proves the pipeline
		// works; every new id is marked seen before any processing starts.
		logger.Info("first run detected, processing only the latest paper but marking all as seen")
		toProcess = []domain.Paper{latestPublished(newPapers)}
		for _, paper := range newPapers {
			notified[paper.ID] = true
		}
	}

	for _, result := range w.processAll(ctx, logger, toProcess, notified, summary.FirstRun) {
		if result.Err != nil {
			summary.Failed++
		} else {
			summary.Processed++
		}
	}

	if err := w.ledger.Save(notified); err != nil {
		return summary, fmt.Errorf("save ledger: %w", err)
	}

	logger.Info("watch run completed",
		"papers_processed", summary.Processed,
		"papers_failed", summary.Failed,
		"total_notified", len(notified),
	)
	return summary, nil
}

// processAll runs the per-paper pipeline sequentially. A failed paper is
// recorded and skipped; outside the first-run path its id stays out of the
// ledger so the next run retries it.
func (w *Watcher) processAll(ctx context.Context, logger *slog.Logger, papers []domain.Paper, notified map[string]bool, firstRun bool) []domain.PaperResult {
	results := make([]domain.PaperResult, 0, len(papers))
	for _, paper := range papers {
		logger.Info("processing paper", "paper_id", paper.ID, "title", paper.Title)

		if err := w.processPaper(ctx, paper); err != nil {
			logger.Error("failed to process paper", "paper_id", paper.ID, "error", err)
			results = append(results, domain.PaperResult{Paper: paper, Err: err})
			continue
		}

		if !firstRun {
			notified[paper.ID] = true
		}
		logger.Info("successfully processed paper", "paper_id", paper.ID)
		results = append(results, domain.PaperResult{Paper: paper})
	}
	return results
}

func (w *Watcher) processPaper(ctx context.Context, paper domain.Paper) error {
	document, err := w.fetcher.Fetch(ctx, paper)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}

	summary, err := w.summarizer.Summarize(ctx, paper, document)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	if err := w.notifier.Notify(ctx, paper, summary); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// collapseDuplicates keeps the first occurrence of each id, preserving order.
func collapseDuplicates(papers []domain.Paper) []domain.Paper {
	seen := make(map[string]struct{}, len(papers))
	out := make([]domain.Paper, 0, len(papers))
	for _, paper := range papers {
		if _, ok := seen[paper.ID]; ok {
			continue
		}
		seen[paper.ID] = struct{}{}
		out = append(out, paper)
	}
	return out
}

// latestPublished picks the paper with the greatest published value; on ties
// the first encountered wins, keeping the choice deterministic.
func latestPublished(papers []domain.Paper) domain.Paper {
	latest := papers[0]
	for _, paper := range papers[1:] {
		if paper.Published > latest.Published {
			latest = paper
		}
	}
	return latest
}
