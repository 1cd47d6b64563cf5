package api

import (
	"net/http"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/admin"
	"github.com/labstack/echo/v4"
)

type AddAdminRequest struct {
	UserID int64 `json:"user_id"`
}

func (h *Handler) registerAdmins(r router) {
	r.add(http.MethodGet, "/admin/admins", h.ListAdmins).
		Summary("List admins").
		Tags("admins").
		Response(http.StatusOK, []admin.Admin{}, "Admin set").
		Errors(http.StatusForbidden).
		Build()

	r.add(http.MethodPost, "/admin/admins", h.AddAdmin).
		Summary("Grant admin rights").
		Tags("admins").
		Body(AddAdminRequest{}, "User to promote").
		Response(http.StatusCreated, admin.Admin{}, "Admin added").
		Response(http.StatusOK, admin.Admin{}, "Already an admin").
		Errors(http.StatusBadRequest, http.StatusForbidden).
		Build()

	r.add(http.MethodDelete, "/admin/admins/:uid", h.RemoveAdmin).
		Summary("Revoke admin rights").
		Tags("admins").
		PathParam("uid", "Telegram user id").
		Response(http.StatusNoContent, nil, "Admin removed").
		Errors(http.StatusForbidden, http.StatusNotFound, http.StatusConflict).
		Build()
}

func (h *Handler) ListAdmins(c echo.Context) error {
	if !h.admin.IsAdmin(callerOf(c)) {
		return h.adminError(c, admin.ErrNotAdmin)
	}
	return c.JSON(http.StatusOK, h.admin.Admins())
}

func (h *Handler) AddAdmin(c echo.Context) error {
	var req AddAdminRequest
	if err := bind(c, &req); err != nil {
		return h.adminError(c, err)
	}

	a, created, err := h.admin.AddAdmin(c.Request().Context(), callerOf(c), req.UserID)
	if err != nil {
		return h.adminError(c, err)
	}

	if created {
		return c.JSON(http.StatusCreated, a)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) RemoveAdmin(c echo.Context) error {
	userID, err := pathID(c, "uid")
	if err != nil {
		return h.adminError(c, err)
	}

	if err := h.admin.RemoveAdmin(c.Request().Context(), callerOf(c), userID); err != nil {
		return h.adminError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
