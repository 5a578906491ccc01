package domain

import "time"

type AssignmentStatus string

const (
	AssignmentStatusAssigned    AssignmentStatus = "ASSIGNED"
	AssignmentStatusAccepted    AssignmentStatus = "ACCEPTED"
	AssignmentStatusRejected    AssignmentStatus = "REJECTED"
	AssignmentStatusCompleted   AssignmentStatus = "COMPLETED"
	AssignmentStatusPendingSwap AssignmentStatus = "PENDING_SWAP"
	AssignmentStatusSwapped     AssignmentStatus = "SWAPPED"
)

// ShiftAssignment 把一个用户和一个班次绑定起来，它的状态独立于班次的状态演进
type ShiftAssignment struct {
	ID                   int64            `json:"id"`
	ShiftID              int64            `json:"shiftID"`
	UserID               int64            `json:"userID"`
	Status               AssignmentStatus `json:"status"`
	Notes                string           `json:"notes"`
	ClockInTime          *time.Time       `json:"clockInTime"`
	ClockOutTime         *time.Time       `json:"clockOutTime"`
	BreakDurationMinutes int32            `json:"breakDurationMinutes"`
	AssignedBy           int64            `json:"assignedBy"`
	SwapRequestedWith    *int64           `json:"swapRequestedWith"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
	Version              int32            `json:"-"`
}

// ActualWorkHours 返回实际工作时长（小时）
// 缺少上下班打卡记录时返回 0，休息时间总是会被扣除，即使它超出了打卡区间
func (a *ShiftAssignment) ActualWorkHours() float64 {
	if a.ClockInTime == nil || a.ClockOutTime == nil {
		return 0
	}

	worked := a.ClockOutTime.Sub(*a.ClockInTime) - time.Duration(a.BreakDurationMinutes)*time.Minute
	return worked.Hours()
}

// OvertimeHours 返回超出标准时长的加班时长（小时），不会返回负数
func (a *ShiftAssignment) OvertimeHours(standardHours float64) float64 {
	actual := a.ActualWorkHours()
	if actual > standardHours {
		return actual - standardHours
	}
	return 0
}

// AssignmentQuery 用户分配记录列表的查询参数，按所属班次的时间窗口筛选
type AssignmentQuery struct {
	UserID    int64
	StartDate *time.Time
	EndDate   *time.Time
}
