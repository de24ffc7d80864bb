package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// DefaultPath - путь файла результата по умолчанию
const DefaultPath = "optimization_results.json"

// resultFileMode - права файла результата, он читается другими процессами
const resultFileMode os.FileMode = 0o644

// ResultStore хранит результат последнего цикла одним JSON-файлом.
// Запись идет во временный файл в том же каталоге, затем rename.
type ResultStore struct {
	path   string
	logger *logger.Logger
}

// NewResultStore создает хранилище для указанного пути
func NewResultStore(path string, log *logger.Logger) *ResultStore {
	if path == "" {
		path = DefaultPath
	}
	return &ResultStore{path: path, logger: log}
}

// Path возвращает путь файла результата
func (s *ResultStore) Path() string {
	return s.path
}

// Save перезаписывает файл результатом цикла
func (s *ResultStore) Save(_ context.Context, result *entity.CycleResult) (string, error) {
	if result == nil {
		return "", errors.New("result cannot be nil")
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(resultFileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to set result permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write result: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to sync result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to close result: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	s.logger.Debug("Cycle result written", "path", s.path, "bytes", len(data))
	return s.path, nil
}

// Load читает последний сохраненный результат
func (s *ResultStore) Load(_ context.Context) (*entity.CycleResult, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repository.ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var result entity.CycleResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	return &result, nil
}
