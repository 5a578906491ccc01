package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name" validate:"required"`
		Email   string `json:"email" validate:"required,email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	org := &domain.Organization{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}

	if err := h.repository.CreateOrganization(org); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "organizations_email_key":
			h.badRequest(w, r, errors.New("组织邮箱已存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "组织创建成功", org)
}

func (h *Handler) GetAllOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.repository.GetAllOrganizations()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取组织列表成功", orgs)
}

func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	org := r.Context().Value(OrganizationCtx).(*domain.Organization)
	h.successResponse(w, r, "获取组织信息成功", org)
}

func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    *string `json:"name"`
		Email   *string `json:"email" validate:"omitempty,email"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	org := r.Context().Value(OrganizationCtx).(*domain.Organization)

	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Email != nil {
		org.Email = *req.Email
	}
	if req.Phone != nil {
		org.Phone = *req.Phone
	}
	if req.Address != nil {
		org.Address = *req.Address
	}

	if err := h.repository.UpdateOrganization(org); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "organizations_email_key":
			h.badRequest(w, r, errors.New("组织邮箱已存在"))
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新组织信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新组织信息成功", org)
}

func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	org := r.Context().Value(OrganizationCtx).(*domain.Organization)

	if err := h.repository.DeleteOrganization(org.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除组织成功", nil)
}
