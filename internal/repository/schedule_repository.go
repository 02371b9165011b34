package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/timetable-api/internal/models"
)

// ScheduleRepository persists the single accepted schedule document: the
// last input bundle together with the grid generated from it. Writes
// replace the previous document wholesale; last writer wins.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

type scheduleRow struct {
	ID        string          `db:"id"`
	Input     json.RawMessage `db:"input"`
	Grid      json.RawMessage `db:"grid"`
	Conflicts json.RawMessage `db:"conflicts"`
	CreatedAt time.Time       `db:"created_at"`
}

// Replace deletes any stored document and inserts the new one in a single
// transaction.
func (r *ScheduleRepository) Replace(ctx context.Context, record *models.ScheduleRecord) error {
	inputPayload, err := json.Marshal(record.Input)
	if err != nil {
		return fmt.Errorf("marshal schedule input: %w", err)
	}
	gridPayload, err := json.Marshal(record.Grid)
	if err != nil {
		return fmt.Errorf("marshal schedule grid: %w", err)
	}
	conflictsPayload, err := json.Marshal(record.Conflicts)
	if err != nil {
		return fmt.Errorf("marshal schedule conflicts: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule replace: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules`); err != nil {
		return fmt.Errorf("clear schedules: %w", err)
	}
	const insert = `INSERT INTO schedules (id, input, grid, conflicts, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, insert, record.ID, inputPayload, gridPayload, conflictsPayload, record.CreatedAt); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule replace: %w", err)
	}
	return nil
}

// Latest loads the stored document. sql.ErrNoRows signals an empty store.
func (r *ScheduleRepository) Latest(ctx context.Context) (*models.ScheduleRecord, error) {
	const query = `SELECT id, input, grid, conflicts, created_at FROM schedules ORDER BY created_at DESC LIMIT 1`
	var row scheduleRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, err
	}

	record := &models.ScheduleRecord{ID: row.ID, CreatedAt: row.CreatedAt}
	if err := json.Unmarshal(row.Input, &record.Input); err != nil {
		return nil, fmt.Errorf("unmarshal schedule input: %w", err)
	}
	if len(row.Grid) > 0 {
		if err := json.Unmarshal(row.Grid, &record.Grid); err != nil {
			return nil, fmt.Errorf("unmarshal schedule grid: %w", err)
		}
	}
	if len(row.Conflicts) > 0 {
		if err := json.Unmarshal(row.Conflicts, &record.Conflicts); err != nil {
			return nil, fmt.Errorf("unmarshal schedule conflicts: %w", err)
		}
	}
	return record, nil
}
