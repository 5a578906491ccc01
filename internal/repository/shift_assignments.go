package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

// CreateAssignment 在一个事务中完成分配写入
// 事务内先对用户加咨询锁，然后重新检查时间冲突、容量和重复分配
// 以保证并发请求同一个名额时最多只有一个能成功
func (r *Repository) CreateAssignment(assignment *domain.ShiftAssignment, shift *domain.Shift) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, assignment.UserID); err != nil {
		return err
	}

	conflictQuery := `
		SELECT EXISTS (
			SELECT 1
			FROM shift_assignments a
			JOIN shifts s ON s.id = a.shift_id
			WHERE a.user_id = $1
				AND a.status = 'ASSIGNED'
				AND a.shift_id <> $4
				AND (
					(s.start_time >= $2 AND s.start_time <= $3)
					OR (s.end_time >= $2 AND s.end_time <= $3)
					OR (s.start_time <= $2 AND s.end_time >= $3)
				)
		)
	`
	var hasConflict bool
	if err := tx.QueryRowContext(ctx, conflictQuery, assignment.UserID, shift.StartTime, shift.EndTime, shift.ID).Scan(&hasConflict); err != nil {
		return err
	}
	if hasConflict {
		return domain.ErrScheduleConflict
	}

	if shift.MaxAllowedEmployees != nil {
		var count int32
		countQuery := `
			SELECT COUNT(*) FROM shift_assignments WHERE shift_id = $1 AND status = 'ASSIGNED'
		`
		if err := tx.QueryRowContext(ctx, countQuery, shift.ID).Scan(&count); err != nil {
			return err
		}
		if count >= *shift.MaxAllowedEmployees {
			return domain.ErrShiftFull
		}
	}

	var alreadyAssigned bool
	duplicateQuery := `
		SELECT EXISTS (
			SELECT 1 FROM shift_assignments WHERE shift_id = $1 AND user_id = $2
		)
	`
	if err := tx.QueryRowContext(ctx, duplicateQuery, shift.ID, assignment.UserID).Scan(&alreadyAssigned); err != nil {
		return err
	}
	if alreadyAssigned {
		return domain.ErrAlreadyAssigned
	}

	insertQuery := `
		INSERT INTO shift_assignments (shift_id, user_id, status, assigned_by, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, break_duration_minutes, created_at, updated_at, version
	`
	args := []any{assignment.ShiftID, assignment.UserID, assignment.Status, assignment.AssignedBy, assignment.Notes}
	dst := []any{&assignment.ID, &assignment.BreakDurationMinutes, &assignment.CreatedAt, &assignment.UpdatedAt, &assignment.Version}
	if err := tx.QueryRowContext(ctx, insertQuery, args...).Scan(dst...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "shift_assignments_shift_id_user_id_key" {
			return domain.ErrAlreadyAssigned
		}
		return err
	}

	return tx.Commit()
}

func (r *Repository) GetAssignmentByID(id int64) (*domain.ShiftAssignment, error) {
	query := `
		SELECT
			shift_id,
			user_id,
			status,
			clock_in_time,
			clock_out_time,
			break_duration_minutes,
			swap_requested_with,
			assigned_by,
			notes,
			created_at,
			updated_at,
			version
		FROM shift_assignments
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	assignment := &domain.ShiftAssignment{
		ID: id,
	}

	dst := []any{
		&assignment.ShiftID,
		&assignment.UserID,
		&assignment.Status,
		&assignment.ClockInTime,
		&assignment.ClockOutTime,
		&assignment.BreakDurationMinutes,
		&assignment.SwapRequestedWith,
		&assignment.AssignedBy,
		&assignment.Notes,
		&assignment.CreatedAt,
		&assignment.UpdatedAt,
		&assignment.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return assignment, nil
}

func (r *Repository) GetAssignmentsByShiftID(shiftID int64) ([]*domain.ShiftAssignment, error) {
	query := `
		SELECT
			id,
			shift_id,
			user_id,
			status,
			clock_in_time,
			clock_out_time,
			break_duration_minutes,
			swap_requested_with,
			assigned_by,
			notes,
			created_at,
			updated_at,
			version
		FROM shift_assignments
		WHERE shift_id = $1
		ORDER BY created_at ASC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// GetAssignmentsByUser 查找用户的分配记录，时间范围按对应班次的起止时间过滤
func (r *Repository) GetAssignmentsByUser(q *domain.AssignmentQuery) ([]*domain.ShiftAssignment, error) {
	query := `
		SELECT
			a.id,
			a.shift_id,
			a.user_id,
			a.status,
			a.clock_in_time,
			a.clock_out_time,
			a.break_duration_minutes,
			a.swap_requested_with,
			a.assigned_by,
			a.notes,
			a.created_at,
			a.updated_at,
			a.version
		FROM shift_assignments a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.user_id = $1
			AND ($2::timestamptz IS NULL OR s.start_time >= $2)
			AND ($3::timestamptz IS NULL OR s.end_time <= $3)
		ORDER BY s.start_time ASC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, q.UserID, q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// FindConflictingAssignments 查找用户在给定时间段内状态为已分配的记录
// excludeShiftID 不为 0 时排除该班次自身的分配
func (r *Repository) FindConflictingAssignments(userID int64, start, end time.Time, excludeShiftID int64) ([]*domain.ShiftAssignment, error) {
	query := `
		SELECT
			a.id,
			a.shift_id,
			a.user_id,
			a.status,
			a.clock_in_time,
			a.clock_out_time,
			a.break_duration_minutes,
			a.swap_requested_with,
			a.assigned_by,
			a.notes,
			a.created_at,
			a.updated_at,
			a.version
		FROM shift_assignments a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.user_id = $1
			AND a.status = 'ASSIGNED'
			AND ($4::bigint = 0 OR a.shift_id <> $4)
			AND (
				(s.start_time >= $2 AND s.start_time <= $3)
				OR (s.end_time >= $2 AND s.end_time <= $3)
				OR (s.start_time <= $2 AND s.end_time >= $3)
			)
		ORDER BY s.start_time ASC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID, start, end, excludeShiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAssignments(rows)
}

func (r *Repository) CountAssignmentsByShiftAndStatus(shiftID int64, status domain.AssignmentStatus) (int32, error) {
	query := `
		SELECT COUNT(*) FROM shift_assignments WHERE shift_id = $1 AND status = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var count int32
	if err := r.dbpool.QueryRowContext(ctx, query, shiftID, status).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) UpdateAssignment(assignment *domain.ShiftAssignment) error {
	query := `
		UPDATE shift_assignments
		SET
			status = $1,
			clock_in_time = $2,
			clock_out_time = $3,
			break_duration_minutes = $4,
			swap_requested_with = $5,
			notes = $6,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING updated_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		assignment.Status,
		assignment.ClockInTime,
		assignment.ClockOutTime,
		assignment.BreakDurationMinutes,
		assignment.SwapRequestedWith,
		assignment.Notes,
		assignment.ID,
		assignment.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&assignment.UpdatedAt, &assignment.Version); err != nil {
		return err
	}

	return nil
}

// DeleteAssignment 删除分配记录并在同一个事务中写入通知记录
func (r *Repository) DeleteAssignment(id int64, notifications []*domain.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shift_assignments WHERE id = $1`, id); err != nil {
		return err
	}

	for _, n := range notifications {
		if err := insertNotificationTx(ctx, tx, n); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func scanAssignments(rows *sql.Rows) ([]*domain.ShiftAssignment, error) {
	assignments := make([]*domain.ShiftAssignment, 0)
	for rows.Next() {
		assignment := &domain.ShiftAssignment{}
		dst := []any{
			&assignment.ID,
			&assignment.ShiftID,
			&assignment.UserID,
			&assignment.Status,
			&assignment.ClockInTime,
			&assignment.ClockOutTime,
			&assignment.BreakDurationMinutes,
			&assignment.SwapRequestedWith,
			&assignment.AssignedBy,
			&assignment.Notes,
			&assignment.CreatedAt,
			&assignment.UpdatedAt,
			&assignment.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}
