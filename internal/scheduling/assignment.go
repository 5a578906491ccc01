package scheduling

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

type AssignShiftInput struct {
	ShiftID        int64
	UserID         int64
	AssignedBy     int64
	OrganizationID int64
	Status         domain.AssignmentStatus // 为空时默认为已分配
	Notes          string
}

// AssignShift 把用户分配到班次
// 引擎先做一轮完整的前置检查给出明确的错误，写入时 repository 会在
// 事务中重新校验一遍，并发竞争同一个名额时以事务内的结果为准
func (e *Engine) AssignShift(input *AssignShiftInput) (*domain.ShiftAssignment, error) {
	status := input.Status
	if status == "" {
		status = domain.AssignmentStatusAssigned
	}
	switch status {
	case domain.AssignmentStatusAssigned, domain.AssignmentStatusAccepted,
		domain.AssignmentStatusRejected, domain.AssignmentStatusCompleted,
		domain.AssignmentStatusPendingSwap, domain.AssignmentStatusSwapped:
	default:
		return nil, InvalidInputf("无效的分配状态")
	}

	shift, err := e.GetShift(input.ShiftID, input.OrganizationID)
	if err != nil {
		return nil, err
	}
	if shift.Status == domain.ShiftStatusCancelled {
		return nil, InvalidInputf("不能给已取消的班次分配员工")
	}

	user, err := e.store.GetUserByID(input.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFoundf("用户不存在")
		}
		return nil, err
	}
	if user.OrganizationID != shift.OrganizationID {
		return nil, InvalidInputf("用户不属于该班次所在的组织")
	}

	if _, err := e.store.GetUserByID(input.AssignedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFoundf("分配人不存在")
		}
		return nil, err
	}

	conflicts, err := e.store.FindConflictingAssignments(user.ID, shift.StartTime, shift.EndTime, shift.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, Conflictf("用户在该时间段内已有其它班次分配")
	}

	if shift.MaxAllowedEmployees != nil {
		count, err := e.store.CountAssignmentsByShiftAndStatus(shift.ID, domain.AssignmentStatusAssigned)
		if err != nil {
			return nil, err
		}
		if count >= *shift.MaxAllowedEmployees {
			return nil, InvalidInputf("班次已达到最大允许人数")
		}
	}

	assignment := &domain.ShiftAssignment{
		ShiftID:    shift.ID,
		UserID:     user.ID,
		Status:     status,
		AssignedBy: input.AssignedBy,
		Notes:      input.Notes,
	}

	if err := e.store.CreateAssignment(assignment, shift); err != nil {
		switch {
		case errors.Is(err, domain.ErrScheduleConflict):
			return nil, Conflictf("用户在该时间段内已有其它班次分配")
		case errors.Is(err, domain.ErrShiftFull):
			return nil, InvalidInputf("班次已达到最大允许人数")
		case errors.Is(err, domain.ErrAlreadyAssigned):
			return nil, Conflictf("用户已被分配到该班次")
		default:
			return nil, err
		}
	}

	e.notifier.Send(&domain.Notification{
		Type:           domain.NotificationTypeShiftAssigned,
		Title:          "新的班次分配",
		Content:        fmt.Sprintf("你被分配到班次「%s」（%s 至 %s）", shift.Title, shift.StartTime.Format(timeLayout), shift.EndTime.Format(timeLayout)),
		Channel:        domain.NotificationChannelEmail,
		Metadata:       map[string]any{"shiftId": shift.ID, "assignmentId": assignment.ID},
		RecipientID:    user.ID,
		OrganizationID: shift.OrganizationID,
	})

	return assignment, nil
}

// RemoveAssignment 撤销一条分配，班次开始后不再允许撤销
func (e *Engine) RemoveAssignment(assignmentID int64, organizationID int64) error {
	assignment, err := e.getAssignment(assignmentID)
	if err != nil {
		return err
	}

	shift, err := e.GetShift(assignment.ShiftID, organizationID)
	if err != nil {
		return err
	}
	if !time.Now().Before(shift.StartTime) {
		return InvalidInputf("班次已经开始，不能撤销分配")
	}

	notifications := []*domain.Notification{
		{
			Type:           domain.NotificationTypeShiftRemoved,
			Title:          "班次分配已撤销",
			Content:        fmt.Sprintf("你在班次「%s」（%s 至 %s）的分配已被撤销", shift.Title, shift.StartTime.Format(timeLayout), shift.EndTime.Format(timeLayout)),
			Channel:        domain.NotificationChannelInApp,
			Metadata:       map[string]any{"shiftId": shift.ID},
			RecipientID:    assignment.UserID,
			OrganizationID: shift.OrganizationID,
		},
	}

	if err := e.store.DeleteAssignment(assignment.ID, notifications); err != nil {
		return err
	}

	e.notifier.Deliver(notifications)

	return nil
}

// RequestShiftSwap 由分配的持有人向同组织的另一名用户发起换班请求
// 只把分配标记为待换班并记录目标用户，换班本身不在这里发生
// TODO: 目标用户接受/拒绝换班的接口还没有实现
func (e *Engine) RequestShiftSwap(assignmentID int64, requesterID int64, targetUserID int64) (*domain.ShiftAssignment, error) {
	assignment, err := e.getAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.UserID != requesterID {
		return nil, InvalidInputf("只能为自己的班次分配发起换班请求")
	}
	if assignment.Status == domain.AssignmentStatusPendingSwap {
		return nil, Conflictf("该分配已有待处理的换班请求")
	}
	if assignment.Status != domain.AssignmentStatusAssigned && assignment.Status != domain.AssignmentStatusAccepted {
		return nil, InvalidInputf("当前状态的分配不能发起换班请求")
	}
	if targetUserID == requesterID {
		return nil, InvalidInputf("不能向自己发起换班请求")
	}

	shift, err := e.GetShift(assignment.ShiftID, 0)
	if err != nil {
		return nil, err
	}

	requester, err := e.store.GetUserByID(requesterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFoundf("用户不存在")
		}
		return nil, err
	}

	target, err := e.store.GetUserByID(targetUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFoundf("目标用户不存在")
		}
		return nil, err
	}
	if target.OrganizationID != requester.OrganizationID {
		return nil, InvalidInputf("目标用户不属于同一个组织")
	}

	conflicts, err := e.store.FindConflictingAssignments(target.ID, shift.StartTime, shift.EndTime, shift.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, Conflictf("目标用户在该时间段内已有冲突的班次分配")
	}

	assignment.Status = domain.AssignmentStatusPendingSwap
	assignment.SwapRequestedWith = &target.ID
	if err := e.store.UpdateAssignment(assignment); err != nil {
		return nil, err
	}

	e.notifier.Send(&domain.Notification{
		Type:           domain.NotificationTypeShiftSwapRequested,
		Title:          "收到换班请求",
		Content:        fmt.Sprintf("%s 请求和你换班「%s」（%s 至 %s）", requester.FullName, shift.Title, shift.StartTime.Format(timeLayout), shift.EndTime.Format(timeLayout)),
		Channel:        domain.NotificationChannelInApp,
		Metadata:       map[string]any{"shiftId": shift.ID, "assignmentId": assignment.ID},
		RecipientID:    target.ID,
		OrganizationID: shift.OrganizationID,
	})

	return assignment, nil
}

// FindConflictingAssignments 查找用户在给定时间窗口内冲突的分配
// excludeShiftID 不为 0 时排除该班次自身的分配
func (e *Engine) FindConflictingAssignments(userID int64, start, end time.Time, excludeShiftID int64) ([]*domain.ShiftAssignment, error) {
	if !end.After(start) {
		return nil, InvalidInputf("查询的结束时间必须晚于开始时间")
	}

	return e.store.FindConflictingAssignments(userID, start, end, excludeShiftID)
}

// ListAssignmentsByShift 列出班次名下的所有分配记录
func (e *Engine) ListAssignmentsByShift(shiftID int64, organizationID int64) ([]*domain.ShiftAssignment, error) {
	shift, err := e.GetShift(shiftID, organizationID)
	if err != nil {
		return nil, err
	}

	return e.store.GetAssignmentsByShiftID(shift.ID)
}

func (e *Engine) ListAssignmentsByUser(q *domain.AssignmentQuery) ([]*domain.ShiftAssignment, error) {
	if q.StartDate != nil && q.EndDate != nil && q.EndDate.Before(*q.StartDate) {
		return nil, InvalidInputf("查询的结束日期不能早于开始日期")
	}

	return e.store.GetAssignmentsByUser(q)
}

// ActualWorkHours 返回分配记录的实际工作时长（小时）
func (e *Engine) ActualWorkHours(assignmentID int64) (float64, error) {
	assignment, err := e.getAssignment(assignmentID)
	if err != nil {
		return 0, err
	}

	return assignment.ActualWorkHours(), nil
}

// OvertimeHours 返回分配记录超出标准时长的加班时长（小时）
func (e *Engine) OvertimeHours(assignmentID int64, standardHours float64) (float64, error) {
	assignment, err := e.getAssignment(assignmentID)
	if err != nil {
		return 0, err
	}

	return assignment.OvertimeHours(standardHours), nil
}

func (e *Engine) getAssignment(id int64) (*domain.ShiftAssignment, error) {
	assignment, err := e.store.GetAssignmentByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFoundf("分配记录不存在")
		}
		return nil, err
	}

	return assignment, nil
}
