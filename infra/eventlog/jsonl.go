// Package eventlog persists agent log entries to rotating JSONL files or
// SQLite.
package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/fleetnav/core/eventlog"
	"github.com/kilianp07/fleetnav/core/model"
)

// JSONLStore appends entries as JSON lines with size based rotation.
type JSONLStore struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	path   string
}

// JSONLConfig configures a JSONLStore. Sizes are in megabytes, ages in days.
type JSONLConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// NewJSONLStore creates the parent directory and returns the store.
func NewJSONLStore(cfg JSONLConfig) (*JSONLStore, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return &JSONLStore{writer: lj, path: cfg.Path}, nil
}

// Append writes one line and rotates when the file is full.
func (s *JSONLStore) Append(_ context.Context, e model.LogEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.writer.Write(b)
	return err
}

// Query reads the active file and its rotated backups, oldest entry first.
func (s *JSONLStore) Query(ctx context.Context, q eventlog.Query) ([]model.LogEntry, error) {
	ext := filepath.Ext(s.path)
	prefix := s.path[:len(s.path)-len(ext)]
	files, err := filepath.Glob(prefix + "*")
	if err != nil {
		return nil, err
	}
	var res []model.LogEntry
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := readJSONL(f, q)
		if err != nil {
			continue
		}
		res = append(res, entries...)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Time.Before(res[j].Time) })
	if q.Limit > 0 && len(res) > q.Limit {
		res = res[len(res)-q.Limit:]
	}
	return res, nil
}

func readJSONL(path string, q eventlog.Query) ([]model.LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	var res []model.LogEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e model.LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if q.Match(e) {
			res = append(res, e)
		}
	}
	return res, scanner.Err()
}

// Close closes the underlying writer.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.Close()
}
