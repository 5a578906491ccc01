package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

func (h *Handler) GetMyNotifications(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	// 默认包含已读的通知，showRead=false 时只返回未读的
	showRead := r.URL.Query().Get("showRead") != "false"

	notifications, err := h.repository.GetNotificationsForUser(myInfo.ID, myInfo.OrganizationID, showRead)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取通知列表成功", notifications)
}

func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	notificationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "通知ID无效")
		return
	}
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	notification, err := h.repository.GetNotificationByID(notificationID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "通知不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 只有接收者本人能查看通知
	if notification.RecipientID != myInfo.ID {
		h.errorResponse(w, r, "通知不存在")
		return
	}

	h.successResponse(w, r, "获取通知成功", notification)
}

func (h *Handler) ReadNotification(w http.ResponseWriter, r *http.Request) {
	notificationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "通知ID无效")
		return
	}
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	if err := h.repository.MarkNotificationRead(notificationID, myInfo.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "通知不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "通知已标记为已读", nil)
}

func (h *Handler) ReadAllNotifications(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	count, err := h.repository.MarkAllNotificationsRead(myInfo.ID, myInfo.OrganizationID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, fmt.Sprintf("已将 %d 条通知标记为已读", count), nil)
}

func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	notificationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, "通知ID无效")
		return
	}
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	if err := h.repository.DeleteNotification(notificationID, myInfo.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "通知不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除通知成功", nil)
}
