package api

import (
	"net/http"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/labstack/echo/v4"
)

type SetAttemptsRequest struct {
	Value int `json:"value"`
}

type AddAttemptsRequest struct {
	Delta int `json:"delta" doc:"Negative values remove attempts down to zero"`
}

type ResetRequest struct {
	Value *int `json:"value,omitempty" doc:"Defaults to the group's attempt budget"`
}

type ResetResponse struct {
	GroupID int64 `json:"group_id"`
	Reset   int   `json:"reset" doc:"Number of user records reset"`
}

func (h *Handler) registerAttempts(r router) {
	r.add(http.MethodGet, "/admin/groups/:id/users", h.ListUsers).
		Summary("List a group's attempt records").
		Tags("attempts").
		PathParam("id", "Group chat id").
		Response(http.StatusOK, []ledger.Attempt{}, "Attempt records").
		Errors(http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodGet, "/admin/groups/:id/users/:uid", h.GetUser).
		Summary("Show one attempt record").
		Tags("attempts").
		PathParam("id", "Group chat id").
		PathParam("uid", "Telegram user id").
		Response(http.StatusOK, ledger.Attempt{}, "Attempt record").
		Errors(http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodPut, "/admin/groups/:id/users/:uid/attempts", h.SetAttempts).
		Summary("Set remaining attempts").
		Tags("attempts").
		PathParam("id", "Group chat id").
		PathParam("uid", "Telegram user id").
		Body(SetAttemptsRequest{}, "New remaining count; negative values become zero").
		Response(http.StatusOK, ledger.Attempt{}, "Updated record").
		Errors(http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodPost, "/admin/groups/:id/users/:uid/attempts", h.AddAttempts).
		Summary("Adjust remaining attempts").
		Tags("attempts").
		PathParam("id", "Group chat id").
		PathParam("uid", "Telegram user id").
		Body(AddAttemptsRequest{}, "Change to apply").
		Response(http.StatusOK, ledger.Attempt{}, "Updated record").
		Errors(http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodPost, "/admin/groups/:id/users/:uid/block", h.Block).
		Summary("Block a user in a group").
		Tags("attempts").
		PathParam("id", "Group chat id").
		PathParam("uid", "Telegram user id").
		Response(http.StatusOK, ledger.Attempt{}, "Updated record").
		Errors(http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodPost, "/admin/groups/:id/users/:uid/unblock", h.Unblock).
		Summary("Unblock a user in a group").
		Tags("attempts").
		PathParam("id", "Group chat id").
		PathParam("uid", "Telegram user id").
		Response(http.StatusOK, ledger.Attempt{}, "Updated record").
		Errors(http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodPost, "/admin/groups/:id/reset", h.ResetGroup).
		Summary("Reset every user of a group").
		Tags("attempts").
		PathParam("id", "Group chat id").
		Body(ResetRequest{}, "Optional value to reset to").
		Response(http.StatusOK, ResetResponse{}, "Records reset").
		Errors(http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound).
		Build()
}

func groupAndUser(c echo.Context) (int64, int64, error) {
	groupID, err := pathID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	userID, err := pathID(c, "uid")
	if err != nil {
		return 0, 0, err
	}
	return groupID, userID, nil
}

func (h *Handler) ListUsers(c echo.Context) error {
	groupID, err := pathID(c, "id")
	if err != nil {
		return h.adminError(c, err)
	}

	rows, err := h.admin.Users(callerOf(c), groupID)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetUser(c echo.Context) error {
	groupID, userID, err := groupAndUser(c)
	if err != nil {
		return h.adminError(c, err)
	}

	row, err := h.admin.User(callerOf(c), groupID, userID)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, row)
}

func (h *Handler) SetAttempts(c echo.Context) error {
	groupID, userID, err := groupAndUser(c)
	if err != nil {
		return h.adminError(c, err)
	}

	var req SetAttemptsRequest
	if err := bind(c, &req); err != nil {
		return h.adminError(c, err)
	}

	row, err := h.admin.SetAttempts(c.Request().Context(), callerOf(c), groupID, userID, req.Value)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, row)
}

func (h *Handler) AddAttempts(c echo.Context) error {
	groupID, userID, err := groupAndUser(c)
	if err != nil {
		return h.adminError(c, err)
	}

	var req AddAttemptsRequest
	if err := bind(c, &req); err != nil {
		return h.adminError(c, err)
	}

	row, err := h.admin.AddAttempts(c.Request().Context(), callerOf(c), groupID, userID, req.Delta)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, row)
}

func (h *Handler) Block(c echo.Context) error {
	groupID, userID, err := groupAndUser(c)
	if err != nil {
		return h.adminError(c, err)
	}

	row, err := h.admin.Block(c.Request().Context(), callerOf(c), groupID, userID)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, row)
}

func (h *Handler) Unblock(c echo.Context) error {
	groupID, userID, err := groupAndUser(c)
	if err != nil {
		return h.adminError(c, err)
	}

	row, err := h.admin.Unblock(c.Request().Context(), callerOf(c), groupID, userID)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, row)
}

func (h *Handler) ResetGroup(c echo.Context) error {
	groupID, err := pathID(c, "id")
	if err != nil {
		return h.adminError(c, err)
	}

	var req ResetRequest
	if c.Request().ContentLength != 0 {
		if err := bind(c, &req); err != nil {
			return h.adminError(c, err)
		}
	}

	n, err := h.admin.ResetGroup(c.Request().Context(), callerOf(c), groupID, req.Value)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, ResetResponse{GroupID: groupID, Reset: n})
}
