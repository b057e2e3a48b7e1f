package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reefops/internal/models"
)

// Shift operations

func (d *Database) InsertShift(ctx context.Context, shift *models.Shift) error {
	query := `
		INSERT INTO shifts (id, staff_id, date, start_time, end_time, role, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	if _, err := d.db.ExecContext(ctx, query,
		shift.ID, shift.StaffID, shift.Date, shift.StartTime, shift.EndTime,
		shift.Role, shift.Notes); err != nil {
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	return nil
}

func (d *Database) UpdateShift(ctx context.Context, shift *models.Shift) error {
	query := `
		UPDATE shifts
		SET staff_id = ?, date = ?, start_time = ?, end_time = ?, role = ?, notes = ?, updated_at = ?
		WHERE id = ?`

	result, err := d.db.ExecContext(ctx, query,
		shift.StaffID, shift.Date, shift.StartTime, shift.EndTime,
		shift.Role, shift.Notes, time.Now().UTC(), shift.ID)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
	}
	return requireRow(result, shift.ID)
}

func (d *Database) DeleteShift(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	return requireRow(result, id)
}

const shiftColumns = `id, staff_id, date, start_time, end_time, role, notes, created_at, updated_at`

func scanShift(s rowScanner) (*models.Shift, error) {
	var shift models.Shift
	err := s.Scan(&shift.ID, &shift.StaffID, &shift.Date, &shift.StartTime,
		&shift.EndTime, &shift.Role, &shift.Notes, &shift.CreatedAt, &shift.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// GetShift returns the shift or (nil, nil) when absent.
func (d *Database) GetShift(ctx context.Context, id string) (*models.Shift, error) {
	shift, err := scanShift(d.db.QueryRowContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}
	return shift, nil
}

func (d *Database) collectShifts(rows *sql.Rows) ([]models.Shift, error) {
	defer func() { _ = rows.Close() }()

	var shifts []models.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, *shift)
	}
	return shifts, rows.Err()
}

// StaffShiftsOn lists one staff member's shifts on a date.
func (d *Database) StaffShiftsOn(ctx context.Context, staffID, date string) ([]models.Shift, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE staff_id = ? AND date = ? ORDER BY start_time`,
		staffID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	return d.collectShifts(rows)
}

// ShiftsBetween lists all shifts in an inclusive date range, for the
// schedule calendar.
func (d *Database) ShiftsBetween(ctx context.Context, startDate, endDate string) ([]models.Shift, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE date >= ? AND date <= ? ORDER BY date, start_time`,
		startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	return d.collectShifts(rows)
}

// Time-off operations

func (d *Database) InsertTimeOff(ctx context.Context, req *models.TimeOffRequest) error {
	query := `
		INSERT INTO time_off_requests (id, staff_id, start_date, end_date, reason, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := d.db.ExecContext(ctx, query,
		req.ID, req.StaffID, req.StartDate, req.EndDate, req.Reason, req.Status); err != nil {
		return fmt.Errorf("failed to insert time-off request: %w", err)
	}
	return nil
}

const timeOffColumns = `id, staff_id, start_date, end_date, reason, status, decided_by, decided_at, created_at`

func scanTimeOff(s rowScanner) (*models.TimeOffRequest, error) {
	var req models.TimeOffRequest
	var decidedAt sql.NullTime
	err := s.Scan(&req.ID, &req.StaffID, &req.StartDate, &req.EndDate,
		&req.Reason, &req.Status, &req.DecidedBy, &decidedAt, &req.CreatedAt)
	if err != nil {
		return nil, err
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		req.DecidedAt = &t
	}
	return &req, nil
}

// GetTimeOff returns the request or (nil, nil) when absent.
func (d *Database) GetTimeOff(ctx context.Context, id string) (*models.TimeOffRequest, error) {
	req, err := scanTimeOff(d.db.QueryRowContext(ctx,
		`SELECT `+timeOffColumns+` FROM time_off_requests WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time-off request: %w", err)
	}
	return req, nil
}

// DecideTimeOff transitions a pending request to approved or denied.
// Returns sql.ErrNoRows when the request is missing or already decided.
func (d *Database) DecideTimeOff(ctx context.Context, id string, status models.TimeOffStatus, decidedBy string, at time.Time) error {
	result, err := d.db.ExecContext(ctx, `
		UPDATE time_off_requests
		SET status = ?, decided_by = ?, decided_at = ?
		WHERE id = ? AND status = ?`,
		status, decidedBy, at, id, models.TimeOffPending)
	if err != nil {
		return fmt.Errorf("failed to decide time-off request: %w", err)
	}
	return requireRow(result, id)
}

// ApprovedTimeOffCovering lists approved requests for a staff member that
// cover the given date.
func (d *Database) ApprovedTimeOffCovering(ctx context.Context, staffID, date string) ([]models.TimeOffRequest, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+timeOffColumns+`
		FROM time_off_requests
		WHERE staff_id = ? AND status = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date`,
		staffID, models.TimeOffApproved, date, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query time-off requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reqs []models.TimeOffRequest
	for rows.Next() {
		req, err := scanTimeOff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time-off request: %w", err)
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

// StaffTimeOff lists a staff member's requests, newest first.
func (d *Database) StaffTimeOff(ctx context.Context, staffID string) ([]models.TimeOffRequest, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+timeOffColumns+` FROM time_off_requests WHERE staff_id = ? ORDER BY created_at DESC`,
		staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to query time-off requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reqs []models.TimeOffRequest
	for rows.Next() {
		req, err := scanTimeOff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time-off request: %w", err)
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

// Shift-swap operations

func (d *Database) InsertSwap(ctx context.Context, swap *models.ShiftSwap) error {
	query := `
		INSERT INTO shift_swaps (id, shift_id, from_staff_id, to_staff_id, note, status)
		VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := d.db.ExecContext(ctx, query,
		swap.ID, swap.ShiftID, swap.FromStaffID, swap.ToStaffID, swap.Note, swap.Status); err != nil {
		return fmt.Errorf("failed to insert shift swap: %w", err)
	}
	return nil
}

const swapColumns = `id, shift_id, from_staff_id, to_staff_id, note, status, created_at, resolved_at`

func scanSwap(s rowScanner) (*models.ShiftSwap, error) {
	var swap models.ShiftSwap
	var resolvedAt sql.NullTime
	err := s.Scan(&swap.ID, &swap.ShiftID, &swap.FromStaffID, &swap.ToStaffID,
		&swap.Note, &swap.Status, &swap.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		swap.ResolvedAt = &t
	}
	return &swap, nil
}

// GetSwap returns the swap or (nil, nil) when absent.
func (d *Database) GetSwap(ctx context.Context, id string) (*models.ShiftSwap, error) {
	swap, err := scanSwap(d.db.QueryRowContext(ctx,
		`SELECT `+swapColumns+` FROM shift_swaps WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift swap: %w", err)
	}
	return swap, nil
}

// OpenSwaps lists unresolved swap offers, oldest first.
func (d *Database) OpenSwaps(ctx context.Context) ([]models.ShiftSwap, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+swapColumns+` FROM shift_swaps WHERE status = ? ORDER BY created_at`,
		models.SwapOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift swaps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var swaps []models.ShiftSwap
	for rows.Next() {
		swap, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift swap: %w", err)
		}
		swaps = append(swaps, *swap)
	}
	return swaps, rows.Err()
}

// ResolveSwap transitions an open swap to accepted or cancelled, recording
// the acceptor. Returns sql.ErrNoRows when the swap is missing or already
// resolved.
func (d *Database) ResolveSwap(ctx context.Context, id string, status models.SwapStatus, toStaffID string, at time.Time) error {
	result, err := d.db.ExecContext(ctx, `
		UPDATE shift_swaps
		SET status = ?, to_staff_id = ?, resolved_at = ?
		WHERE id = ? AND status = ?`,
		status, toStaffID, at, id, models.SwapOpen)
	if err != nil {
		return fmt.Errorf("failed to resolve shift swap: %w", err)
	}
	return requireRow(result, id)
}
