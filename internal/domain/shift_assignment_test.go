package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

func TestActualWorkHours(t *testing.T) {
	clockIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clockOut := clockIn.Add(8 * time.Hour)

	assignment := &domain.ShiftAssignment{
		ClockInTime:          &clockIn,
		ClockOutTime:         &clockOut,
		BreakDurationMinutes: 30,
	}

	assert.InDelta(t, 7.5, assignment.ActualWorkHours(), 1e-9)
}

func TestActualWorkHoursWithoutClockRecords(t *testing.T) {
	clockIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		assignment *domain.ShiftAssignment
	}{
		{"没有打卡记录", &domain.ShiftAssignment{}},
		{"只有上班打卡", &domain.ShiftAssignment{ClockInTime: &clockIn}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Zero(t, tc.assignment.ActualWorkHours())
		})
	}
}

func TestOvertimeHours(t *testing.T) {
	clockIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clockOut := clockIn.Add(10 * time.Hour)

	assignment := &domain.ShiftAssignment{
		ClockInTime:          &clockIn,
		ClockOutTime:         &clockOut,
		BreakDurationMinutes: 30,
	}

	// 实际工时 9.5 小时，标准工时 8 小时
	assert.InDelta(t, 1.5, assignment.OvertimeHours(8), 1e-9)
}

func TestOvertimeHoursNeverNegative(t *testing.T) {
	clockIn := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	clockOut := clockIn.Add(4 * time.Hour)

	assignment := &domain.ShiftAssignment{
		ClockInTime:  &clockIn,
		ClockOutTime: &clockOut,
	}

	assert.Zero(t, assignment.OvertimeHours(8))
}
