package repo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/miradorstack/cgroup-analyzer/internal/models"
)

const (
	// AnalysisFile holds the full AnalysisResult.
	AnalysisFile = "analysis.json"
	// SummaryFile holds the per-cgroup totals keyed by cgroup name.
	SummaryFile = "summary_statistics.json"
)

// ResultStore persists analysis results as JSON files in one directory.
type ResultStore struct {
	dir string
}

// NewResultStore constructs a store writing below dir.
func NewResultStore(dir string) *ResultStore {
	return &ResultStore{dir: dir}
}

// Save writes the analysis and summary files, replacing earlier ones.
func (s *ResultStore) Save(result models.AnalysisResult) error {
	if s == nil || s.dir == "" {
		return fmt.Errorf("result store not configured")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := writeJSON(filepath.Join(s.dir, AnalysisFile), result); err != nil {
		return err
	}

	summaries := make(map[string]models.Summary, len(result.Cgroups))
	for _, cg := range result.Cgroups {
		summaries[cg.Name] = cg.Summary
	}
	return writeJSON(filepath.Join(s.dir, SummaryFile), summaries)
}

// Load reads a previously saved analysis.
func (s *ResultStore) Load() (models.AnalysisResult, error) {
	var result models.AnalysisResult
	data, err := os.ReadFile(filepath.Join(s.dir, AnalysisFile))
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("decode %s: %w", AnalysisFile, err)
	}
	return result, nil
}

// writeJSON writes through a temporary file so readers never see a partial
// document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
