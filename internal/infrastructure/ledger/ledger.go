package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"arxivwatch/internal/ports"
)

// FileLedger keeps the set of notified paper IDs in a flat JSON file.
type FileLedger struct {
	path   string
	logger *slog.Logger
}

var _ ports.NotificationLedger = (*FileLedger)(nil)

// New wires a ledger backed by the given file path.
func New(path string, logger *slog.Logger) *FileLedger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileLedger{path: path, logger: logger}
}

type ledgerDocument struct {
	NotifiedIDs []string `json:"notified_ids"`
}

// Load reads the persisted ID set. A missing or malformed file is not an
// error: it is treated as "no history" so a run can always proceed.
func (l *FileLedger) Load() map[string]bool {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Info("no existing ledger file found, starting fresh", "path", l.path)
		return map[string]bool{}
	}
	if err != nil {
		l.logger.Error("failed to read ledger file", "path", l.path, "error", err)
		return map[string]bool{}
	}

	var doc ledgerDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		l.logger.Error("failed to parse ledger file", "path", l.path, "error", err)
		return map[string]bool{}
	}

	ids := make(map[string]bool, len(doc.NotifiedIDs))
	for _, id := range doc.NotifiedIDs {
		ids[id] = true
	}
	l.logger.Info("loaded notified paper ids", "count", len(ids))
	return ids
}

// Save writes the ID set sorted and pretty-printed, via a temp file renamed
// onto the target so a crash mid-write never leaves a truncated ledger.
func (l *FileLedger) Save(ids map[string]bool) error {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	raw, err := json.MarshalIndent(ledgerDocument{NotifiedIDs: sorted}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	raw = append(raw, '\n')

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace ledger file: %w", err)
	}

	l.logger.Info("saved notified paper ids", "count", len(sorted))
	return nil
}
