package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/scheduling"
)

// parseTimeParam 解析查询参数中的时间，同时接受日期和 RFC3339 两种格式
func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title                string    `json:"title" validate:"required"`
		Description          string    `json:"description"`
		StartTime            time.Time `json:"startTime" validate:"required"`
		EndTime              time.Time `json:"endTime" validate:"required"`
		Location             string    `json:"location"`
		Type                 string    `json:"type" validate:"required,oneof=REGULAR OVERTIME NIGHT WEEKEND HOLIDAY"`
		MinRequiredEmployees int32     `json:"minRequiredEmployees" validate:"required,min=1"`
		MaxAllowedEmployees  *int32    `json:"maxAllowedEmployees"`
		HourlyRate           *float64  `json:"hourlyRate"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	subString := r.Context().Value(SubCtxKey).(string)
	sub, err := strconv.ParseInt(subString, 10, 64)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	organizationID := r.Context().Value(OrganizationCtxKey).(int64)

	shift, err := h.engine.CreateShift(&scheduling.CreateShiftInput{
		OrganizationID:       organizationID,
		Title:                req.Title,
		Description:          req.Description,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		Location:             req.Location,
		Type:                 domain.ShiftType(req.Type),
		MinRequiredEmployees: req.MinRequiredEmployees,
		MaxAllowedEmployees:  req.MaxAllowedEmployees,
		HourlyRate:           req.HourlyRate,
		CreatedBy:            sub,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "班次创建成功", shift)
}

func (h *Handler) GetAllShifts(w http.ResponseWriter, r *http.Request) {
	organizationID := r.Context().Value(OrganizationCtxKey).(int64)

	startDate, err := parseTimeParam(r.URL.Query().Get("startDate"))
	if err != nil {
		h.errorResponse(w, r, "开始日期无效")
		return
	}
	endDate, err := parseTimeParam(r.URL.Query().Get("endDate"))
	if err != nil {
		h.errorResponse(w, r, "结束日期无效")
		return
	}

	shifts, err := h.engine.ListShifts(&domain.ShiftQuery{
		OrganizationID: organizationID,
		StartDate:      startDate,
		EndDate:        endDate,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "班次ID无效")
		return
	}
	organizationID := r.Context().Value(OrganizationCtxKey).(int64)

	shift, err := h.engine.GetShift(shiftID, organizationID)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次信息成功", shift)
}

func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title                *string    `json:"title"`
		Description          *string    `json:"description"`
		StartTime            *time.Time `json:"startTime"`
		EndTime              *time.Time `json:"endTime"`
		Location             *string    `json:"location"`
		Type                 *string    `json:"type" validate:"omitempty,oneof=REGULAR OVERTIME NIGHT WEEKEND HOLIDAY"`
		Status               *string    `json:"status" validate:"omitempty,oneof=PLANNED CONFIRMED IN_PROGRESS COMPLETED CANCELLED"`
		MinRequiredEmployees *int32     `json:"minRequiredEmployees"`
		MaxAllowedEmployees  *int32     `json:"maxAllowedEmployees"`
		HourlyRate           *float64   `json:"hourlyRate"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shiftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "班次ID无效")
		return
	}
	organizationID := r.Context().Value(OrganizationCtxKey).(int64)

	patch := &scheduling.ShiftPatch{
		Title:                req.Title,
		Description:          req.Description,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		Location:             req.Location,
		MinRequiredEmployees: req.MinRequiredEmployees,
		MaxAllowedEmployees:  req.MaxAllowedEmployees,
		HourlyRate:           req.HourlyRate,
	}
	if req.Type != nil {
		shiftType := domain.ShiftType(*req.Type)
		patch.Type = &shiftType
	}
	if req.Status != nil {
		status := domain.ShiftStatus(*req.Status)
		patch.Status = &status
	}

	shift, err := h.engine.UpdateShift(shiftID, organizationID, patch)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新班次成功", shift)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "班次ID无效")
		return
	}
	organizationID := r.Context().Value(OrganizationCtxKey).(int64)

	if err := h.engine.RemoveShift(shiftID, organizationID); err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除班次成功", nil)
}

func (h *Handler) GetShiftAssignments(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "班次ID无效")
		return
	}
	organizationID := r.Context().Value(OrganizationCtxKey).(int64)

	assignments, err := h.engine.ListAssignmentsByShift(shiftID, organizationID)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次分配列表成功", assignments)
}

func (h *Handler) AssignShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64  `json:"userID" validate:"required"`
		Status string `json:"status" validate:"omitempty,oneof=ASSIGNED ACCEPTED REJECTED COMPLETED PENDING_SWAP SWAPPED"`
		Notes  string `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shiftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "班次ID无效")
		return
	}
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	assignment, err := h.engine.AssignShift(&scheduling.AssignShiftInput{
		ShiftID:        shiftID,
		UserID:         req.UserID,
		AssignedBy:     myInfo.ID,
		OrganizationID: myInfo.OrganizationID,
		Status:         domain.AssignmentStatus(req.Status),
		Notes:          req.Notes,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "班次分配成功", assignment)
}
