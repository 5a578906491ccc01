package repository_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

func TestGetShift(t *testing.T) {
	repo, mock := newMockRepository(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"organization_id", "title", "description", "start_time", "end_time",
		"location", "type", "status", "min_required_employees",
		"max_allowed_employees", "hourly_rate", "created_by",
		"created_at", "updated_at", "version",
	}).AddRow(1, "早班", "", start, end, "一楼前台", "REGULAR", "PLANNED", 2, nil, nil, 1, now, now, 1)

	mock.ExpectQuery(`FROM shifts`).
		WithArgs(int64(7), int64(1)).
		WillReturnRows(rows)

	shift, err := repo.GetShift(7, 1)

	require.NoError(t, err)
	assert.Equal(t, int64(7), shift.ID)
	assert.Equal(t, "早班", shift.Title)
	assert.Equal(t, domain.ShiftStatusPlanned, shift.Status)
	assert.Nil(t, shift.MaxAllowedEmployees)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateShiftStatusCascade(t *testing.T) {
	repo, mock := newMockRepository(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	now := time.Now()

	shift := &domain.Shift{
		ID:                   7,
		OrganizationID:       1,
		Title:                "早班",
		StartTime:            start,
		EndTime:              start.Add(8 * time.Hour),
		Type:                 domain.ShiftTypeRegular,
		Status:               domain.ShiftStatusCancelled,
		MinRequiredEmployees: 2,
		CreatedBy:            1,
		Version:              1,
	}
	notifications := []*domain.Notification{
		{
			Type:           domain.NotificationTypeShiftCancelled,
			Title:          "班次已取消",
			Channel:        domain.NotificationChannelEmail,
			RecipientID:    3,
			OrganizationID: 1,
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE shifts`).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at", "version"}).AddRow(now, 2))
	mock.ExpectExec(`UPDATE shift_assignments`).
		WithArgs(string(domain.AssignmentStatusRejected), shift.ID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`INSERT INTO notifications`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "read", "created_at"}).AddRow(9, false, now))
	mock.ExpectCommit()

	err := repo.UpdateShiftStatusCascade(shift, domain.AssignmentStatusRejected, notifications)

	require.NoError(t, err)
	assert.Equal(t, int32(2), shift.Version)
	assert.Equal(t, int64(9), notifications[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
