package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ImportStatus is the final state of an import run.
type ImportStatus string

const (
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
	ImportCancelled ImportStatus = "cancelled"
)

// ImportRun is one finished import, as kept in import history.
type ImportRun struct {
	ID           string       `json:"id"`
	Kind         string       `json:"kind"`
	FileName     string       `json:"fileName"`
	Status       ImportStatus `json:"status"`
	TotalRows    int          `json:"totalRows"`
	Inserted     int          `json:"inserted"`
	Merged       int          `json:"merged"`
	Skipped      int          `json:"skipped"`
	Failed       int          `json:"failed"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	UserID       *int64       `json:"userId,omitempty"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   time.Time    `json:"finishedAt"`
}

// RecordImport stores a finished run.
func (s *Store) RecordImport(ctx context.Context, run ImportRun) error {
	id := ToPgUUID(run.ID)
	if !id.Valid {
		return fmt.Errorf("record import: invalid id %q", run.ID)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO import_history
			(id, kind, file_name, status, total_rows, inserted, merged, skipped, failed,
			 error_message, user_id, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, run.Kind, run.FileName, string(run.Status), run.TotalRows, run.Inserted,
		run.Merged, run.Skipped, run.Failed, ToPgText(run.ErrorMessage), run.UserID,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// ListImportsParams filters ListImports. An empty Kind matches every kind.
type ListImportsParams struct {
	Kind  string
	Limit int
	// UserID restricts the list to runs started by that user when set.
	UserID *int64
}

// ListImports returns the most recent runs first.
func (s *Store) ListImports(ctx context.Context, p ListImportsParams) ([]ImportRun, error) {
	if p.Limit <= 0 {
		p.Limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, file_name, status, total_rows, inserted, merged, skipped, failed,
		       error_message, user_id, started_at, finished_at
		FROM import_history
		WHERE ($1 = '' OR kind = $1)
		  AND ($3::bigint IS NULL OR user_id = $3)
		ORDER BY finished_at DESC
		LIMIT $2`, p.Kind, p.Limit, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}

	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ImportRun, error) {
		var (
			run    ImportRun
			id     pgtype.UUID
			status string
			errMsg pgtype.Text
		)
		err := row.Scan(&id, &run.Kind, &run.FileName, &status, &run.TotalRows, &run.Inserted,
			&run.Merged, &run.Skipped, &run.Failed, &errMsg, &run.UserID, &run.StartedAt, &run.FinishedAt)
		run.ID = PgUUIDToString(id)
		run.Status = ImportStatus(status)
		run.ErrorMessage = errMsg.String
		return run, err
	})
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	return runs, nil
}

// PurgeImportHistory deletes runs finished before cutoff and returns how
// many were removed.
func (s *Store) PurgeImportHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM import_history WHERE finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge import history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ImportSummary totals the runs of one kind.
type ImportSummary struct {
	Kind     string `json:"kind"`
	Runs     int    `json:"runs"`
	Inserted int    `json:"inserted"`
	Merged   int    `json:"merged"`
	Failed   int    `json:"failed"`
}

// SummarizeImports totals runs finished in [from, to) per kind.
func (s *Store) SummarizeImports(ctx context.Context, from, to time.Time) ([]ImportSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT kind, count(*), coalesce(sum(inserted), 0), coalesce(sum(merged), 0), coalesce(sum(failed), 0)
		FROM import_history
		WHERE finished_at >= $1 AND finished_at < $2
		GROUP BY kind
		ORDER BY kind`, from, to)
	if err != nil {
		return nil, fmt.Errorf("summarize imports: %w", err)
	}

	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ImportSummary, error) {
		var sum ImportSummary
		err := row.Scan(&sum.Kind, &sum.Runs, &sum.Inserted, &sum.Merged, &sum.Failed)
		return sum, err
	})
	if err != nil {
		return nil, fmt.Errorf("summarize imports: %w", err)
	}
	return summaries, nil
}
