package domain

// Paper is a core entity describing one publication discovered in a feed.
// Instances are immutable once constructed and produced only by the feed source.
type Paper struct {
	ID           string
	Title        string
	Abstract     string
	Link         string
	Published    string
	Authors      []string
	Categories   []string
	AnnounceType string
}

// PaperResult captures the outcome of one paper's trip through the pipeline.
type PaperResult struct {
	Paper Paper
	Err   error
}

// RunSummary reports per-run counts for observability.
type RunSummary struct {
	Fetched   int
	New       int
	Processed int
	Failed    int
	FirstRun  bool
}
