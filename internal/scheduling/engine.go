package scheduling

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

// Store 是引擎依赖的持久化接口，由 repository 实现
type Store interface {
	CreateShift(shift *domain.Shift) error
	GetShift(id int64, organizationID int64) (*domain.Shift, error)
	GetAllShifts(q *domain.ShiftQuery) ([]*domain.Shift, error)
	UpdateShift(shift *domain.Shift, notifications []*domain.Notification) error
	UpdateShiftStatusCascade(shift *domain.Shift, assignmentStatus domain.AssignmentStatus, notifications []*domain.Notification) error
	DeleteShift(id int64) error

	GetUserByID(id int64) (*domain.User, error)

	CreateAssignment(assignment *domain.ShiftAssignment, shift *domain.Shift) error
	GetAssignmentByID(id int64) (*domain.ShiftAssignment, error)
	GetAssignmentsByShiftID(shiftID int64) ([]*domain.ShiftAssignment, error)
	GetAssignmentsByUser(q *domain.AssignmentQuery) ([]*domain.ShiftAssignment, error)
	FindConflictingAssignments(userID int64, start, end time.Time, excludeShiftID int64) ([]*domain.ShiftAssignment, error)
	CountAssignmentsByShiftAndStatus(shiftID int64, status domain.AssignmentStatus) (int32, error)
	UpdateAssignment(assignment *domain.ShiftAssignment) error
	DeleteAssignment(id int64, notifications []*domain.Notification) error
}

// Notifier 负责通知的投递，投递失败不影响业务操作本身
type Notifier interface {
	// Send 先落库再投递，用于单条独立产生的通知
	Send(notification *domain.Notification)
	// Deliver 只负责投递，通知记录已经随业务变更在事务中写入
	Deliver(notifications []*domain.Notification)
}

type Engine struct {
	store    Store
	notifier Notifier
}

func NewEngine(store Store, notifier Notifier) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
	}
}

type CreateShiftInput struct {
	OrganizationID       int64
	Title                string
	Description          string
	StartTime            time.Time
	EndTime              time.Time
	Location             string
	Type                 domain.ShiftType
	MinRequiredEmployees int32
	MaxAllowedEmployees  *int32
	HourlyRate           *float64
	CreatedBy            int64
}

// ShiftPatch 描述班次的局部更新，为 nil 的字段保持原值
type ShiftPatch struct {
	Title                *string
	Description          *string
	StartTime            *time.Time
	EndTime              *time.Time
	Location             *string
	Type                 *domain.ShiftType
	Status               *domain.ShiftStatus
	MinRequiredEmployees *int32
	MaxAllowedEmployees  *int32
	HourlyRate           *float64
}

func (e *Engine) CreateShift(input *CreateShiftInput) (*domain.Shift, error) {
	if !input.EndTime.After(input.StartTime) {
		return nil, InvalidInputf("班次的结束时间必须晚于开始时间")
	}
	if input.MinRequiredEmployees < 1 {
		return nil, InvalidInputf("班次的最少需要人数必须大于 0")
	}
	if input.MaxAllowedEmployees != nil && *input.MaxAllowedEmployees < input.MinRequiredEmployees {
		return nil, InvalidInputf("班次的最大允许人数不能小于最少需要人数")
	}
	if input.HourlyRate != nil && *input.HourlyRate < 0 {
		return nil, InvalidInputf("班次的时薪不能为负数")
	}

	creator, err := e.store.GetUserByID(input.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFoundf("创建人不存在")
		}
		return nil, err
	}
	if creator.OrganizationID != input.OrganizationID {
		return nil, InvalidInputf("创建人不属于该组织")
	}

	shift := &domain.Shift{
		OrganizationID:       input.OrganizationID,
		Title:                input.Title,
		Description:          input.Description,
		StartTime:            input.StartTime,
		EndTime:              input.EndTime,
		Location:             input.Location,
		Type:                 input.Type,
		Status:               domain.ShiftStatusPlanned,
		MinRequiredEmployees: input.MinRequiredEmployees,
		MaxAllowedEmployees:  input.MaxAllowedEmployees,
		HourlyRate:           input.HourlyRate,
		CreatedBy:            input.CreatedBy,
	}

	if err := e.store.CreateShift(shift); err != nil {
		return nil, err
	}

	return shift, nil
}

func (e *Engine) ListShifts(q *domain.ShiftQuery) ([]*domain.Shift, error) {
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		return nil, InvalidInputf("查询的结束日期不能早于开始日期")
	}

	return e.store.GetAllShifts(q)
}

func (e *Engine) GetShift(id int64, organizationID int64) (*domain.Shift, error) {
	shift, err := e.store.GetShift(id, organizationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFoundf("班次不存在")
		}
		return nil, err
	}

	return shift, nil
}

// UpdateShift 应用局部更新，状态流转受规则约束
// 状态变为已完成或者已取消时，会级联更新名下处于已分配状态的分配记录
func (e *Engine) UpdateShift(id int64, organizationID int64, patch *ShiftPatch) (*domain.Shift, error) {
	shift, err := e.GetShift(id, organizationID)
	if err != nil {
		return nil, err
	}

	start := shift.StartTime
	end := shift.EndTime
	if patch.StartTime != nil {
		start = *patch.StartTime
	}
	if patch.EndTime != nil {
		end = *patch.EndTime
	}
	if !end.After(start) {
		return nil, InvalidInputf("班次的结束时间必须晚于开始时间")
	}

	changes := make([]string, 0)
	if patch.Title != nil && *patch.Title != shift.Title {
		shift.Title = *patch.Title
		changes = append(changes, "标题")
	}
	if patch.Description != nil && *patch.Description != shift.Description {
		shift.Description = *patch.Description
		changes = append(changes, "描述")
	}
	if patch.StartTime != nil || patch.EndTime != nil {
		if !start.Equal(shift.StartTime) || !end.Equal(shift.EndTime) {
			shift.StartTime = start
			shift.EndTime = end
			changes = append(changes, "时间段")
		}
	}
	if patch.Location != nil && *patch.Location != shift.Location {
		shift.Location = *patch.Location
		changes = append(changes, "地点")
	}
	if patch.Type != nil && *patch.Type != shift.Type {
		shift.Type = *patch.Type
		changes = append(changes, "类型")
	}
	if patch.MinRequiredEmployees != nil && *patch.MinRequiredEmployees != shift.MinRequiredEmployees {
		if *patch.MinRequiredEmployees < 1 {
			return nil, InvalidInputf("班次的最少需要人数必须大于 0")
		}
		shift.MinRequiredEmployees = *patch.MinRequiredEmployees
		changes = append(changes, "最少人数")
	}
	if patch.MaxAllowedEmployees != nil && (shift.MaxAllowedEmployees == nil || *patch.MaxAllowedEmployees != *shift.MaxAllowedEmployees) {
		shift.MaxAllowedEmployees = patch.MaxAllowedEmployees
		changes = append(changes, "最多人数")
	}
	if patch.HourlyRate != nil {
		if *patch.HourlyRate < 0 {
			return nil, InvalidInputf("班次的时薪不能为负数")
		}
		if shift.HourlyRate == nil || *patch.HourlyRate != *shift.HourlyRate {
			shift.HourlyRate = patch.HourlyRate
			changes = append(changes, "时薪")
		}
	}
	if shift.MaxAllowedEmployees != nil && *shift.MaxAllowedEmployees < shift.MinRequiredEmployees {
		return nil, InvalidInputf("班次的最大允许人数不能小于最少需要人数")
	}

	statusChanged := false
	if patch.Status != nil && *patch.Status != shift.Status {
		if !shift.Status.CanTransitionTo(*patch.Status) {
			return nil, InvalidInputf("班次状态不能从 %s 变为 %s", shift.Status, *patch.Status)
		}
		shift.Status = *patch.Status
		statusChanged = true
	}

	if len(changes) == 0 && !statusChanged {
		return shift, nil
	}

	// 通知的接收者是状态变更前仍处于已分配状态的员工
	assignments, err := e.store.GetAssignmentsByShiftID(shift.ID)
	if err != nil {
		return nil, err
	}
	recipients := make([]int64, 0)
	for _, a := range assignments {
		if a.Status == domain.AssignmentStatusAssigned {
			recipients = append(recipients, a.UserID)
		}
	}

	notifications := make([]*domain.Notification, 0)
	switch {
	case statusChanged && shift.Status == domain.ShiftStatusCompleted:
		for _, userID := range recipients {
			notifications = append(notifications, &domain.Notification{
				Type:           domain.NotificationTypeShiftCompleted,
				Title:          "班次已完成",
				Content:        fmt.Sprintf("班次「%s」（%s 至 %s）已标记为完成", shift.Title, shift.StartTime.Format(timeLayout), shift.EndTime.Format(timeLayout)),
				Channel:        domain.NotificationChannelInApp,
				Metadata:       map[string]any{"shiftId": shift.ID},
				RecipientID:    userID,
				OrganizationID: shift.OrganizationID,
			})
		}
		if err := e.store.UpdateShiftStatusCascade(shift, domain.AssignmentStatusCompleted, notifications); err != nil {
			return nil, err
		}
	case statusChanged && shift.Status == domain.ShiftStatusCancelled:
		for _, userID := range recipients {
			notifications = append(notifications, &domain.Notification{
				Type:           domain.NotificationTypeShiftCancelled,
				Title:          "班次已取消",
				Content:        fmt.Sprintf("班次「%s」（%s 至 %s）已被取消", shift.Title, shift.StartTime.Format(timeLayout), shift.EndTime.Format(timeLayout)),
				Channel:        domain.NotificationChannelEmail,
				Metadata:       map[string]any{"shiftId": shift.ID},
				RecipientID:    userID,
				OrganizationID: shift.OrganizationID,
			})
		}
		if err := e.store.UpdateShiftStatusCascade(shift, domain.AssignmentStatusRejected, notifications); err != nil {
			return nil, err
		}
	default:
		if len(changes) > 0 {
			for _, userID := range recipients {
				notifications = append(notifications, &domain.Notification{
					Type:           domain.NotificationTypeShiftUpdated,
					Title:          "班次有更新",
					Content:        fmt.Sprintf("班次「%s」的%s有变更", shift.Title, strings.Join(changes, "、")),
					Channel:        domain.NotificationChannelInApp,
					Metadata:       map[string]any{"shiftId": shift.ID},
					RecipientID:    userID,
					OrganizationID: shift.OrganizationID,
				})
			}
		}
		if err := e.store.UpdateShift(shift, notifications); err != nil {
			return nil, err
		}
	}

	e.notifier.Deliver(notifications)

	return shift, nil
}

// RemoveShift 删除班次，存在已接受的分配时拒绝删除
func (e *Engine) RemoveShift(id int64, organizationID int64) error {
	shift, err := e.GetShift(id, organizationID)
	if err != nil {
		return err
	}

	accepted, err := e.store.CountAssignmentsByShiftAndStatus(shift.ID, domain.AssignmentStatusAccepted)
	if err != nil {
		return err
	}
	if accepted > 0 {
		return Conflictf("仍有员工已接受该班次的分配，不能删除")
	}

	return e.store.DeleteShift(shift.ID)
}
