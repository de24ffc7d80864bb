package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
	"github.com/dreschagin/infra-optimizer/internal/domain/valueobject"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

func cycleWithSummary(t *testing.T, summary string) *entity.CycleResult {
	t.Helper()
	window, _ := valueobject.NewTrailingTimeRange(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Hour)
	rec, err := entity.ParseRecommendation([]byte(`{"analysis_summary":"` + summary + `","priority_actions":[]}`))
	if err != nil {
		t.Fatalf("ParseRecommendation() error = %v", err)
	}

	result := entity.NewCycleResult(time.Now())
	result.Complete(entity.NewMetricSetBuilder(window, 5*time.Minute).Build(), rec, entity.NewApplyReport(), time.Now())
	return result
}

func TestResultStore_SecondSaveOverwritesFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimization_results.json")
	store := NewResultStore(path, logger.New("error"))

	first := cycleWithSummary(t, "first run with a much longer summary than the second one")
	second := cycleWithSummary(t, "second")

	if _, err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("Save(first) error = %v", err)
	}
	location, err := store.Save(context.Background(), second)
	if err != nil {
		t.Fatalf("Save(second) error = %v", err)
	}
	if location != path {
		t.Fatalf("expected location %s, got %s", path, location)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("file is not valid JSON: %v", err)
	}
	var id string
	_ = json.Unmarshal(decoded["id"], &id)
	if id != second.ID {
		t.Fatalf("expected file to hold second run %s, got %s", second.ID, id)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected only the result file, found %d entries", len(entries))
	}

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ID != second.ID || loaded.Analysis.AnalysisSummary != "second" {
		t.Fatalf("unexpected loaded result: %+v", loaded)
	}
}

func TestResultStore_LoadMissingFile(t *testing.T) {
	store := NewResultStore(filepath.Join(t.TempDir(), "missing.json"), logger.New("error"))

	_, err := store.Load(context.Background())
	if !errors.Is(err, repository.ErrCycleNotFound) {
		t.Fatalf("expected ErrCycleNotFound, got %v", err)
	}
}

func TestResultStore_UnwritableDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist", "result.json")
	store := NewResultStore(path, logger.New("error"))

	if _, err := store.Save(context.Background(), cycleWithSummary(t, "x")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestResultStore_FileIsWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	path := filepath.Join(t.TempDir(), "optimization_results.json")
	store := NewResultStore(path, logger.New("error"))

	if _, err := store.Save(context.Background(), cycleWithSummary(t, "ok")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if got := info.Mode().Perm(); got != 0o644 {
		t.Fatalf("expected mode 0644, got %v", got)
	}
}
