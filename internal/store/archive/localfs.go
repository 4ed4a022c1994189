package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantfold/backtest/internal/core"
)

// LocalFS implements Archive on the local filesystem. Results live under
// <basePath>/runs/<runID>.json.
type LocalFS struct {
	basePath string
}

// NewLocalFS creates a new LocalFS archive rooted at basePath
func NewLocalFS(basePath string) (*LocalFS, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "runs"), 0755); err != nil {
		return nil, fmt.Errorf("creating archive path: %w", err)
	}
	return &LocalFS{basePath: basePath}, nil
}

func (l *LocalFS) resultPath(runID string) string {
	return filepath.Join(l.basePath, "runs", runID+".json")
}

func (l *LocalFS) Save(ctx context.Context, result *core.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return os.WriteFile(l.resultPath(result.RunID), data, 0644)
}

func (l *LocalFS) Load(ctx context.Context, runID string) (*core.Result, error) {
	data, err := os.ReadFile(l.resultPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrRunNotFound
		}
		return nil, err
	}

	var result core.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding result %s: %w", runID, err)
	}
	return &result, nil
}

func (l *LocalFS) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.basePath, "runs"))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	return ids, nil
}

func (l *LocalFS) Delete(ctx context.Context, runID string) error {
	return os.Remove(l.resultPath(runID))
}

func (l *LocalFS) Exists(ctx context.Context, runID string) (bool, error) {
	_, err := os.Stat(l.resultPath(runID))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
