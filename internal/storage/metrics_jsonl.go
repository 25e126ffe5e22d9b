package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"swapforge/internal/model"
)

// MetricsJsonl appends pool window metrics to a JSONL file.
type MetricsJsonl struct {
	path string
	mu   sync.Mutex
}

func NewMetricsJsonl(path string) *MetricsJsonl {
	return &MetricsJsonl{path: path}
}

// UpsertWindowMetrics appends metric rows as JSON lines. Append-only:
// a recompute over the same windows writes new lines rather than
// rewriting old ones.
func (s *MetricsJsonl) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open metrics file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, row := range metrics {
		line, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal metrics row: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write metrics row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush metrics: %w", err)
	}
	return nil
}
