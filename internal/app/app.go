package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"arxivwatch/internal/config"
	"arxivwatch/internal/infrastructure/email"
	"arxivwatch/internal/infrastructure/feed"
	"arxivwatch/internal/infrastructure/ledger"
	"arxivwatch/internal/infrastructure/llm"
	"arxivwatch/internal/infrastructure/pdf"
	"arxivwatch/internal/infrastructure/scheduler"
	"arxivwatch/internal/logging"
	"arxivwatch/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	watcher   *usecase.Watcher
	scheduler *usecase.Scheduler
	logger    *slog.Logger
}

// New builds a runnable application instance with all collaborators wired.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout()}
	// One limiter shared by feed and PDF traffic keeps the combined request
	// rate against arXiv within bounds.
	limiter := rate.NewLimiter(rate.Limit(cfg.HTTP.RatePerSecond), 1)

	source := feed.NewRSSSource(cfg.FeedURLs(), httpClient, limiter, baseLogger.With("component", "feed"))
	store := ledger.New(cfg.Storage.File, baseLogger.With("component", "ledger"))
	fetcher := pdf.NewFetcher(httpClient, limiter, cfg.Gemini.PDFPages, baseLogger.With("component", "pdf"))
	summarizer := llm.NewSummarizer(cfg.Gemini, httpClient, baseLogger.With("component", "llm"))

	notifier, err := email.NewNotifier(cfg.SMTP, baseLogger.With("component", "email"))
	if err != nil {
		return nil, fmt.Errorf("build notifier: %w", err)
	}

	watcher := usecase.NewWatcher(usecase.WatcherDeps{
		Source:     source,
		Ledger:     store,
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Notifier:   notifier,
		Logger:     baseLogger.With("component", "watcher"),
	})

	application := &Application{cfg: cfg, watcher: watcher, logger: baseLogger}

	if cfg.Scheduler.CronExpression != "" {
		driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())
		application.scheduler = usecase.NewScheduler(driver, watcher, baseLogger.With("component", "scheduler"))
	}

	return application, nil
}

// Run executes a single watch cycle, or stays resident firing cycles on the
// configured cron schedule until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler == nil {
		_, err := a.watcher.Run(ctx)
		return err
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression)

	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}
