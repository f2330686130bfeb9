package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shiftboard/internal/models"
)

const shiftColumns = `id, employee_name, position, start_time, end_time, status, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*models.Shift, error) {
	var s models.Shift
	if err := row.Scan(
		&s.ID,
		&s.EmployeeName,
		&s.Position,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.UTC()
	s.EndTime = s.EndTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

// ListShifts returns every shift in insertion order.
func (db *DB) ListShifts(ctx context.Context) ([]models.Shift, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+shiftColumns+` FROM shifts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query shifts: %w", err)
	}
	defer rows.Close()

	shifts := make([]models.Shift, 0)
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		shifts = append(shifts, *s)
	}
	return shifts, rows.Err()
}

// GetShift returns the shift with the given id or models.ErrNotFound.
func (db *DB) GetShift(ctx context.Context, id int64) (*models.Shift, error) {
	s, err := scanShift(db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shift %d: %w", id, err)
	}
	return s, nil
}

// CreateShift validates the submitted fields and inserts a new shift.
// Nothing is written when validation fails.
func (db *DB) CreateShift(ctx context.Context, fields models.ShiftFields) (*models.Shift, error) {
	s := models.NewShift(fields)
	if err := s.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	result, err := db.ExecContext(ctx, `
		INSERT INTO shifts (
			employee_name, position, start_time, end_time, status, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.EmployeeName,
		s.Position,
		s.StartTime.UTC(),
		s.EndTime.UTC(),
		s.Status,
		s.Notes,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shift: %w", err)
	}

	s.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last id: %w", err)
	}

	db.logger.Debug().Int64("shift_id", s.ID).Str("employee", s.EmployeeName).Msg("Shift created")
	return db.GetShift(ctx, s.ID)
}

// UpdateShift merges the submitted fields onto the stored shift and re-validates
// the result. The read, validation and write share one transaction, so a
// rejected update leaves the row untouched.
func (db *DB) UpdateShift(ctx context.Context, id int64, fields models.ShiftFields) (*models.Shift, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanShift(tx.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load shift %d: %w", id, err)
	}

	fields.Apply(current)
	if err := current.Validate(); err != nil {
		return nil, err
	}
	current.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE shifts
		SET employee_name = ?, position = ?, start_time = ?, end_time = ?,
			status = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		current.EmployeeName,
		current.Position,
		current.StartTime.UTC(),
		current.EndTime.UTC(),
		current.Status,
		current.Notes,
		current.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update shift %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	db.logger.Debug().Int64("shift_id", id).Str("status", current.Status).Msg("Shift updated")
	return current, nil
}

// DeleteShift permanently removes the shift.
func (db *DB) DeleteShift(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM shifts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shift %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}

	db.logger.Debug().Int64("shift_id", id).Msg("Shift deleted")
	return nil
}
