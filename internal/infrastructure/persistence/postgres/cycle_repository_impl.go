package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
	"github.com/dreschagin/infra-optimizer/internal/domain/repository"
)

// Schema создает таблицу истории циклов
const Schema = `
CREATE TABLE IF NOT EXISTS optimization_cycles (
	id            UUID PRIMARY KEY,
	status        TEXT        NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	applied_count INTEGER     NOT NULL DEFAULT 0,
	skipped_count INTEGER     NOT NULL DEFAULT 0,
	error_count   INTEGER     NOT NULL DEFAULT 0,
	document      JSONB       NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_optimization_cycles_started_at ON optimization_cycles (started_at DESC);
`

const selectColumns = `id, status, started_at, finished_at, applied_count, skipped_count, error_count, document`

// PostgresCycleRepository реализует repository.CycleRepository для PostgreSQL
type PostgresCycleRepository struct {
	db *sql.DB
}

// Open открывает соединение с БД через драйвер lib/pq и проверяет его
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewPostgresCycleRepository создает новый PostgreSQL repository
func NewPostgresCycleRepository(db *sql.DB) *PostgresCycleRepository {
	return &PostgresCycleRepository{
		db: db,
	}
}

// EnsureSchema создает таблицу, если ее нет
func (r *PostgresCycleRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save сохраняет результат цикла (повторное сохранение перезаписывает документ)
func (r *PostgresCycleRepository) Save(ctx context.Context, result *entity.CycleResult) error {
	model, err := ToDBModel(result)
	if err != nil {
		return fmt.Errorf("failed to convert to DB model: %w", err)
	}

	query := `
		INSERT INTO optimization_cycles (id, status, started_at, finished_at, applied_count, skipped_count, error_count, document)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			applied_count = EXCLUDED.applied_count,
			skipped_count = EXCLUDED.skipped_count,
			error_count = EXCLUDED.error_count,
			document = EXCLUDED.document
	`

	_, err = r.db.ExecContext(ctx, query,
		model.ID,
		model.Status,
		model.StartedAt,
		model.FinishedAt,
		model.AppliedCount,
		model.SkippedCount,
		model.ErrorCount,
		model.Document,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle: %w", err)
	}

	return nil
}

// FindLatest находит последний цикл
func (r *PostgresCycleRepository) FindLatest(ctx context.Context) (*entity.CycleResult, error) {
	query := `SELECT ` + selectColumns + `
		FROM optimization_cycles
		ORDER BY started_at DESC
		LIMIT 1
	`

	model, err := ScanCycleRow(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrCycleNotFound
		}
		return nil, fmt.Errorf("failed to scan cycle: %w", err)
	}

	return ToEntity(model)
}

// List возвращает последние циклы, новые первыми
func (r *PostgresCycleRepository) List(ctx context.Context, limit int) ([]*entity.CycleResult, error) {
	query := `SELECT ` + selectColumns + `
		FROM optimization_cycles
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycles: %w", err)
	}
	defer rows.Close()

	return r.scanCycles(rows)
}

// Close закрывает соединение
func (r *PostgresCycleRepository) Close() error {
	return r.db.Close()
}

// scanCycles сканирует несколько строк в слайс результатов
func (r *PostgresCycleRepository) scanCycles(rows *sql.Rows) ([]*entity.CycleResult, error) {
	results := make([]*entity.CycleResult, 0)

	for rows.Next() {
		model, err := ScanCycleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle row: %w", err)
		}

		result, err := ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return results, nil
}
