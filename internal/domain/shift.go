package domain

import "time"

type ShiftType string

const (
	ShiftTypeRegular  ShiftType = "REGULAR"
	ShiftTypeOvertime ShiftType = "OVERTIME"
	ShiftTypeNight    ShiftType = "NIGHT"
	ShiftTypeWeekend  ShiftType = "WEEKEND"
	ShiftTypeHoliday  ShiftType = "HOLIDAY"
)

type ShiftStatus string

const (
	ShiftStatusPlanned    ShiftStatus = "PLANNED"
	ShiftStatusConfirmed  ShiftStatus = "CONFIRMED"
	ShiftStatusInProgress ShiftStatus = "IN_PROGRESS"
	ShiftStatusCompleted  ShiftStatus = "COMPLETED"
	ShiftStatusCancelled  ShiftStatus = "CANCELLED"
)

// CanTransitionTo 判断班次状态能否变更为目标状态
// 变更为相同状态视为合法（幂等），COMPLETED 和 CANCELLED 是终态
func (s ShiftStatus) CanTransitionTo(target ShiftStatus) bool {
	if s == target {
		return true
	}

	switch s {
	case ShiftStatusPlanned:
		// 计划中的班次可以变更为任意状态
		return true
	case ShiftStatusConfirmed, ShiftStatusInProgress:
		return target == ShiftStatusCompleted || target == ShiftStatusCancelled
	default:
		return false
	}
}

type Shift struct {
	ID                   int64       `json:"id"`
	OrganizationID       int64       `json:"organizationID"`
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	StartTime            time.Time   `json:"startTime"`
	EndTime              time.Time   `json:"endTime"`
	Location             string      `json:"location"`
	Type                 ShiftType   `json:"type"`
	Status               ShiftStatus `json:"status"`
	MinRequiredEmployees int32       `json:"minRequiredEmployees"`
	MaxAllowedEmployees  *int32      `json:"maxAllowedEmployees"`
	HourlyRate           *float64    `json:"hourlyRate"`
	CreatedBy            int64       `json:"createdBy"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
	Version              int32       `json:"-"`
}

// DurationHours 返回班次时长（小时）
func (s *Shift) DurationHours() float64 {
	return s.EndTime.Sub(s.StartTime).Hours()
}

// EstimatedCost 按最低所需人数估算班次的人力成本，没有设置时薪时返回 0
func (s *Shift) EstimatedCost() float64 {
	if s.HourlyRate == nil {
		return 0
	}
	return s.DurationHours() * *s.HourlyRate * float64(s.MinRequiredEmployees)
}

// ShiftQuery 班次列表的查询参数，开始和结束两个筛选条件相互独立
type ShiftQuery struct {
	OrganizationID int64
	StartDate      *time.Time
	EndDate        *time.Time
}
