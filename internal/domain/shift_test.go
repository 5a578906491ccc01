package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

func TestShiftStatusCanTransitionTo(t *testing.T) {
	testCases := []struct {
		name     string
		from     domain.ShiftStatus
		to       domain.ShiftStatus
		expected bool
	}{
		{"相同状态视为合法", domain.ShiftStatusConfirmed, domain.ShiftStatusConfirmed, true},
		{"计划中可以确认", domain.ShiftStatusPlanned, domain.ShiftStatusConfirmed, true},
		{"计划中可以直接取消", domain.ShiftStatusPlanned, domain.ShiftStatusCancelled, true},
		{"计划中可以直接完成", domain.ShiftStatusPlanned, domain.ShiftStatusCompleted, true},
		{"已确认可以完成", domain.ShiftStatusConfirmed, domain.ShiftStatusCompleted, true},
		{"已确认可以取消", domain.ShiftStatusConfirmed, domain.ShiftStatusCancelled, true},
		{"已确认不能退回计划中", domain.ShiftStatusConfirmed, domain.ShiftStatusPlanned, false},
		{"进行中可以完成", domain.ShiftStatusInProgress, domain.ShiftStatusCompleted, true},
		{"进行中可以取消", domain.ShiftStatusInProgress, domain.ShiftStatusCancelled, true},
		{"进行中不能退回已确认", domain.ShiftStatusInProgress, domain.ShiftStatusConfirmed, false},
		{"已完成是终态", domain.ShiftStatusCompleted, domain.ShiftStatusPlanned, false},
		{"已取消是终态", domain.ShiftStatusCancelled, domain.ShiftStatusConfirmed, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestShiftDurationAndCost(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	hourlyRate := 25.0

	shift := &domain.Shift{
		StartTime:            start,
		EndTime:              start.Add(8 * time.Hour),
		MinRequiredEmployees: 3,
		HourlyRate:           &hourlyRate,
	}

	assert.InDelta(t, 8.0, shift.DurationHours(), 1e-9)
	assert.InDelta(t, 600.0, shift.EstimatedCost(), 1e-9)
}

func TestShiftEstimatedCostWithoutHourlyRate(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	shift := &domain.Shift{
		StartTime:            start,
		EndTime:              start.Add(8 * time.Hour),
		MinRequiredEmployees: 3,
	}

	assert.Zero(t, shift.EstimatedCost())
}
