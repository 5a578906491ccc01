package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

func (r *Repository) CreateShift(shift *domain.Shift) error {
	query := `
		INSERT INTO shifts (
			organization_id,
			title,
			description,
			start_time,
			end_time,
			location,
			type,
			status,
			min_required_employees,
			max_allowed_employees,
			hourly_rate,
			created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		shift.OrganizationID,
		shift.Title,
		shift.Description,
		shift.StartTime,
		shift.EndTime,
		shift.Location,
		shift.Type,
		shift.Status,
		shift.MinRequiredEmployees,
		shift.MaxAllowedEmployees,
		shift.HourlyRate,
		shift.CreatedBy,
	}
	dst := []any{&shift.ID, &shift.CreatedAt, &shift.UpdatedAt, &shift.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

// GetShift 查找班次，organizationID 为 0 时不做组织范围的限制
func (r *Repository) GetShift(id int64, organizationID int64) (*domain.Shift, error) {
	query := `
		SELECT
			organization_id,
			title,
			description,
			start_time,
			end_time,
			location,
			type,
			status,
			min_required_employees,
			max_allowed_employees,
			hourly_rate,
			created_by,
			created_at,
			updated_at,
			version
		FROM shifts
		WHERE id = $1 AND ($2::bigint = 0 OR organization_id = $2)
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	shift := &domain.Shift{
		ID: id,
	}

	dst := []any{
		&shift.OrganizationID,
		&shift.Title,
		&shift.Description,
		&shift.StartTime,
		&shift.EndTime,
		&shift.Location,
		&shift.Type,
		&shift.Status,
		&shift.MinRequiredEmployees,
		&shift.MaxAllowedEmployees,
		&shift.HourlyRate,
		&shift.CreatedBy,
		&shift.CreatedAt,
		&shift.UpdatedAt,
		&shift.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id, organizationID).Scan(dst...); err != nil {
		return nil, err
	}

	return shift, nil
}

func (r *Repository) GetAllShifts(q *domain.ShiftQuery) ([]*domain.Shift, error) {
	// 两个时间筛选条件相互独立，不构成一个联合的区间过滤
	query := `
		SELECT
			id,
			organization_id,
			title,
			description,
			start_time,
			end_time,
			location,
			type,
			status,
			min_required_employees,
			max_allowed_employees,
			hourly_rate,
			created_by,
			created_at,
			updated_at,
			version
		FROM shifts
		WHERE organization_id = $1
			AND ($2::timestamptz IS NULL OR start_time >= $2)
			AND ($3::timestamptz IS NULL OR end_time <= $3)
		ORDER BY start_time ASC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, q.OrganizationID, q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]*domain.Shift, 0)
	for rows.Next() {
		shift := &domain.Shift{}
		dst := []any{
			&shift.ID,
			&shift.OrganizationID,
			&shift.Title,
			&shift.Description,
			&shift.StartTime,
			&shift.EndTime,
			&shift.Location,
			&shift.Type,
			&shift.Status,
			&shift.MinRequiredEmployees,
			&shift.MaxAllowedEmployees,
			&shift.HourlyRate,
			&shift.CreatedBy,
			&shift.CreatedAt,
			&shift.UpdatedAt,
			&shift.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

// UpdateShift 更新班次并在同一个事务中写入通知记录
// 通知记录必须和班次变更一起落库，避免出现状态没变但通知已发的情况
func (r *Repository) UpdateShift(shift *domain.Shift, notifications []*domain.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := updateShiftTx(ctx, tx, shift); err != nil {
		return err
	}

	for _, n := range notifications {
		if err := insertNotificationTx(ctx, tx, n); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateShiftStatusCascade 更新班次并把它名下所有处于已分配状态的分配记录
// 级联更新为指定状态，通知记录一并写入，整体在一个事务中完成
func (r *Repository) UpdateShiftStatusCascade(shift *domain.Shift, assignmentStatus domain.AssignmentStatus, notifications []*domain.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := updateShiftTx(ctx, tx, shift); err != nil {
		return err
	}

	query := `
		UPDATE shift_assignments
		SET status = $1, updated_at = NOW(), version = version + 1
		WHERE shift_id = $2 AND status = 'ASSIGNED'
	`
	if _, err := tx.ExecContext(ctx, query, assignmentStatus, shift.ID); err != nil {
		return err
	}

	for _, n := range notifications {
		if err := insertNotificationTx(ctx, tx, n); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func updateShiftTx(ctx context.Context, tx *sql.Tx, shift *domain.Shift) error {
	query := `
		UPDATE shifts
		SET
			title = $1,
			description = $2,
			start_time = $3,
			end_time = $4,
			location = $5,
			type = $6,
			status = $7,
			min_required_employees = $8,
			max_allowed_employees = $9,
			hourly_rate = $10,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $11 AND version = $12
		RETURNING updated_at, version
	`

	args := []any{
		shift.Title,
		shift.Description,
		shift.StartTime,
		shift.EndTime,
		shift.Location,
		shift.Type,
		shift.Status,
		shift.MinRequiredEmployees,
		shift.MaxAllowedEmployees,
		shift.HourlyRate,
		shift.ID,
		shift.Version,
	}
	return tx.QueryRowContext(ctx, query, args...).Scan(&shift.UpdatedAt, &shift.Version)
}

// DeleteShift 删除班次，分配记录依赖外键的级联删除一并清理
func (r *Repository) DeleteShift(id int64) error {
	query := `
		DELETE FROM shifts WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
