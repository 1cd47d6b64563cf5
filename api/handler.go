// Package api exposes the bot's inbound events over HTTP: code retrieval
// requests and the admin command surface. Every route runs as the caller
// identified by the bearer token.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	jwtmiddleware "github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/middleware/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/openapi"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/admin"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/gate"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const Prefix = "/api/v1"

// Retriever is the access gate as seen by the HTTP boundary.
type Retriever interface {
	Retrieve(ctx context.Context, groupID, userID int64) (gate.Result, error)
}

type Handler struct {
	gate   Retriever
	admin  *admin.Service
	tokens *jwt.Service
	logger *logging.Service
}

func NewHandler(retriever Retriever, adminSvc *admin.Service, tokens *jwt.Service, logger *logging.Service) *Handler {
	return &Handler{
		gate:   retriever,
		admin:  adminSvc,
		tokens: tokens,
		logger: logger,
	}
}

type router struct {
	group  *echo.Group
	doc    *openapi.OpenAPI
	prefix string
}

// add registers the route and starts its description.
func (r router) add(method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *openapi.RouteBuilder {
	r.group.Add(method, path, h, m...)
	return r.doc.Document(method, r.prefix+path).Secured().Errors(http.StatusUnauthorized)
}

// Register mounts every route on g, which must already authenticate the
// caller. retrieveLimit guards code retrieval only.
func (h *Handler) Register(g *echo.Group, doc *openapi.OpenAPI, retrieveLimit echo.MiddlewareFunc) {
	r := router{group: g, doc: doc, prefix: Prefix}

	var limits []echo.MiddlewareFunc
	if retrieveLimit != nil {
		limits = append(limits, retrieveLimit)
	}

	r.add(http.MethodPost, "/groups/:id/retrieve", h.Retrieve, limits...).
		Summary("Request a 2FA code").
		Description("Consumes one attempt and delivers the current code in a private message.").
		Tags("retrieval").
		PathParam("id", "Group chat id").
		Response(http.StatusOK, RetrieveResponse{}, "Code delivered privately").
		Errors(http.StatusBadRequest, http.StatusForbidden, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable).
		Build()

	r.add(http.MethodPost, "/tokens/revoke", h.RevokeToken).
		Summary("Revoke the calling token").
		Description("The token is rejected from now until its expiry.").
		Tags("tokens").
		Response(http.StatusNoContent, nil, "Token revoked").
		Errors(http.StatusInternalServerError, http.StatusServiceUnavailable).
		Build()

	h.registerGroups(r)
	h.registerAttempts(r)
	h.registerAdmins(r)
}

func (h *Handler) RevokeToken(c echo.Context) error {
	err := h.tokens.RevokeToken(jwtmiddleware.GetClaims(c))
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, jwt.ErrNoRevocation):
		return c.JSON(http.StatusServiceUnavailable, openapi.ErrorBody{Error: "token revocation is not enabled"})
	default:
		h.logger.Error("token revocation failed", zap.Int64("user_id", callerOf(c)), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, openapi.ErrorBody{Error: "internal error"})
	}
}

func callerOf(c echo.Context) int64 {
	return jwtmiddleware.GetUserID(c)
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, errInvalidID
	}
	return id, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

type RetrieveResponse struct {
	Message   string `json:"message"`
	Remaining int    `json:"remaining"`
	ValidFor  int    `json:"valid_for" doc:"Seconds the delivered code stays valid"`
}

func (h *Handler) Retrieve(c echo.Context) error {
	groupID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, openapi.ErrorBody{Error: gate.MessageInvalidGroup})
	}

	res, err := h.gate.Retrieve(c.Request().Context(), groupID, callerOf(c))
	if err != nil {
		return h.retrievalError(c, err)
	}

	return c.JSON(http.StatusOK, RetrieveResponse{
		Message:   gate.MessageSent,
		Remaining: res.Remaining,
		ValidFor:  int(res.ValidFor.Seconds()),
	})
}
