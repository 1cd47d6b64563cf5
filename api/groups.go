package api

import (
	"net/http"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/admin"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/labstack/echo/v4"
)

// GroupRequest is a full or partial group configuration. Omitted fields
// keep their stored value.
type GroupRequest struct {
	Secret          *string `json:"secret,omitempty" doc:"Base32 TOTP secret"`
	Cadence         *int    `json:"cadence,omitempty" doc:"Minutes between prompts"`
	Style           *string `json:"style,omitempty" doc:"minimal, next, interval, clock or full"`
	Timezone        *string `json:"timezone,omitempty" doc:"IANA name or UTC offset such as +03:00"`
	Active          *bool   `json:"active,omitempty"`
	DefaultAttempts *int    `json:"default_attempts,omitempty" doc:"0 inherits the global budget"`
}

func (r GroupRequest) update() (registry.Update, error) {
	upd := registry.Update{
		Secret:          r.Secret,
		Cadence:         r.Cadence,
		Timezone:        r.Timezone,
		Active:          r.Active,
		DefaultAttempts: r.DefaultAttempts,
	}
	if r.Style != nil {
		style, err := presentation.ParseStyle(*r.Style)
		if err != nil {
			return registry.Update{}, err
		}
		upd.Style = &style
	}
	if upd.Empty() {
		return registry.Update{}, errEmptyUpdate
	}
	return upd, nil
}

type DeletedResponse struct {
	GroupID int64 `json:"group_id"`
}

func (h *Handler) registerGroups(r router) {
	r.add(http.MethodGet, "/admin/groups", h.ListGroups).
		Summary("List groups").
		Description("Secrets are redacted; timer state is attached when a timer exists.").
		Tags("groups").
		Response(http.StatusOK, []admin.GroupView{}, "Registered groups").
		Errors(http.StatusForbidden).
		Build()

	r.add(http.MethodPut, "/admin/groups/:id", h.UpsertGroup).
		Summary("Create or update a group").
		Tags("groups").
		PathParam("id", "Group chat id").
		Body(GroupRequest{}, "Group configuration; a new group needs a secret").
		Response(http.StatusCreated, registry.Group{}, "Group created").
		Response(http.StatusOK, registry.Group{}, "Group updated").
		Errors(http.StatusBadRequest, http.StatusForbidden).
		Build()

	r.add(http.MethodPatch, "/admin/groups/:id", h.EditGroup).
		Summary("Edit an existing group").
		Tags("groups").
		PathParam("id", "Group chat id").
		Body(GroupRequest{}, "Fields to change").
		Response(http.StatusOK, registry.Group{}, "Group updated").
		Errors(http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodPost, "/admin/groups/:id/pause", h.PauseGroup).
		Summary("Pause a group's prompts").
		Tags("groups").
		PathParam("id", "Group chat id").
		Response(http.StatusOK, registry.Group{}, "Group paused").
		Errors(http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodPost, "/admin/groups/:id/resume", h.ResumeGroup).
		Summary("Resume a group's prompts").
		Tags("groups").
		PathParam("id", "Group chat id").
		Response(http.StatusOK, registry.Group{}, "Group resumed").
		Errors(http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodPost, "/admin/groups/:id/delete", h.RequestDelete).
		Summary("Request group deletion").
		Description("Returns a token that the same admin must confirm before it expires.").
		Tags("groups").
		PathParam("id", "Group chat id").
		Response(http.StatusAccepted, admin.Confirmation{}, "Confirmation pending").
		Errors(http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodPost, "/admin/confirmations/:token", h.ConfirmDelete).
		Summary("Confirm group deletion").
		Tags("groups").
		TokenParam("token", "Confirmation token").
		Response(http.StatusOK, DeletedResponse{}, "Group and its attempt records deleted").
		Errors(http.StatusForbidden, http.StatusNotFound).
		Build()

	r.add(http.MethodDelete, "/admin/confirmations/:token", h.CancelDelete).
		Summary("Cancel group deletion").
		Tags("groups").
		TokenParam("token", "Confirmation token").
		Response(http.StatusNoContent, nil, "Confirmation dropped").
		Errors(http.StatusForbidden, http.StatusNotFound).
		Build()
}

func (h *Handler) ListGroups(c echo.Context) error {
	groups, err := h.admin.Groups(callerOf(c))
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *Handler) UpsertGroup(c echo.Context) error {
	groupID, upd, err := groupEdit(c)
	if err != nil {
		return h.adminError(c, err)
	}

	g, created, err := h.admin.UpsertGroup(c.Request().Context(), callerOf(c), groupID, upd)
	if err != nil {
		return h.adminError(c, err)
	}

	if created {
		return c.JSON(http.StatusCreated, g)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) EditGroup(c echo.Context) error {
	groupID, upd, err := groupEdit(c)
	if err != nil {
		return h.adminError(c, err)
	}

	g, err := h.admin.EditGroup(c.Request().Context(), callerOf(c), groupID, upd)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func groupEdit(c echo.Context) (int64, registry.Update, error) {
	groupID, err := pathID(c, "id")
	if err != nil {
		return 0, registry.Update{}, err
	}

	var req GroupRequest
	if err := bind(c, &req); err != nil {
		return 0, registry.Update{}, err
	}

	upd, err := req.update()
	return groupID, upd, err
}

func (h *Handler) PauseGroup(c echo.Context) error {
	groupID, err := pathID(c, "id")
	if err != nil {
		return h.adminError(c, err)
	}

	g, err := h.admin.PauseGroup(c.Request().Context(), callerOf(c), groupID)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) ResumeGroup(c echo.Context) error {
	groupID, err := pathID(c, "id")
	if err != nil {
		return h.adminError(c, err)
	}

	g, err := h.admin.ResumeGroup(c.Request().Context(), callerOf(c), groupID)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) RequestDelete(c echo.Context) error {
	groupID, err := pathID(c, "id")
	if err != nil {
		return h.adminError(c, err)
	}

	confirmation, err := h.admin.RequestDelete(c.Request().Context(), callerOf(c), groupID)
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusAccepted, confirmation)
}

func (h *Handler) ConfirmDelete(c echo.Context) error {
	groupID, err := h.admin.ConfirmDelete(c.Request().Context(), callerOf(c), c.Param("token"))
	if err != nil {
		return h.adminError(c, err)
	}
	return c.JSON(http.StatusOK, DeletedResponse{GroupID: groupID})
}

func (h *Handler) CancelDelete(c echo.Context) error {
	if err := h.admin.CancelDelete(callerOf(c), c.Param("token")); err != nil {
		return h.adminError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
