package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

// 没有指定标准工时时按 8 小时计算加班
const defaultStandardWorkHours = 8

func (h *Handler) GetMyAssignments(w http.ResponseWriter, r *http.Request) {
	subString := r.Context().Value(SubCtxKey).(string)
	sub, err := strconv.ParseInt(subString, 10, 64)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

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

	assignments, err := h.engine.ListAssignmentsByUser(&domain.AssignmentQuery{
		UserID:    sub,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取我的班次分配成功", assignments)
}

func (h *Handler) GetAssignmentWorkHours(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "分配ID无效")
		return
	}

	standardHours := float64(defaultStandardWorkHours)
	if param := r.URL.Query().Get("standardHours"); param != "" {
		standardHours, err = strconv.ParseFloat(param, 64)
		if err != nil || standardHours < 0 {
			h.errorResponse(w, r, "标准工时无效")
			return
		}
	}

	actual, err := h.engine.ActualWorkHours(assignmentID)
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	overtime, err := h.engine.OvertimeHours(assignmentID, standardHours)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取工时成功", map[string]float64{
		"actualWorkHours": actual,
		"overtimeHours":   overtime,
	})
}

func (h *Handler) RemoveAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "分配ID无效")
		return
	}
	organizationID := r.Context().Value(OrganizationCtxKey).(int64)

	if err := h.engine.RemoveAssignment(assignmentID, organizationID); err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "撤销班次分配成功", nil)
}

func (h *Handler) RequestShiftSwap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetUserID int64 `json:"targetUserID" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	assignmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "分配ID无效")
		return
	}

	subString := r.Context().Value(SubCtxKey).(string)
	sub, err := strconv.ParseInt(subString, 10, 64)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	assignment, err := h.engine.RequestShiftSwap(assignmentID, sub, req.TargetUserID)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	h.successResponse(w, r, "换班请求已发出", assignment)
}
