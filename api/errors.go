package api

import (
	"errors"
	"net/http"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/openapi"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/admin"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/gate"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/scheduler"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var (
	errInvalidID   = errors.New("invalid id")
	errInvalidBody = errors.New("invalid request body")
	errEmptyUpdate = errors.New("no fields to update")
)

type failure struct {
	status  int
	message string
}

// adminFailures is checked in order; the first sentinel that matches wins.
var adminFailures = []struct {
	err error
	failure
}{
	{admin.ErrNotAdmin, failure{http.StatusForbidden, "admin rights required"}},
	{registry.ErrUnknownGroup, failure{http.StatusNotFound, "unknown group"}},
	{admin.ErrUnknownUser, failure{http.StatusNotFound, "unknown user"}},
	{admin.ErrConfirmationNotFound, failure{http.StatusNotFound, "confirmation not found or expired"}},
	{admin.ErrLastAdmin, failure{http.StatusConflict, "the last admin cannot be removed"}},
	{admin.ErrProtectedAdmin, failure{http.StatusConflict, "the seed admin cannot be removed"}},
	{scheduler.ErrSchedulingConflict, failure{http.StatusConflict, "the group timer could not be updated"}},
	{registry.ErrInvalidGroupID, failure{http.StatusBadRequest, "group id is not a group or channel chat"}},
	{registry.ErrInvalidCadence, failure{http.StatusBadRequest, "cadence must be a positive number of minutes"}},
	{registry.ErrInvalidStyle, failure{http.StatusBadRequest, "invalid presentation style"}},
	{presentation.ErrUnknownStyle, failure{http.StatusBadRequest, "invalid presentation style"}},
	{registry.ErrInvalidTimezone, failure{http.StatusBadRequest, "invalid timezone"}},
	{registry.ErrInvalidAttempts, failure{http.StatusBadRequest, "default attempts must not be negative"}},
	{registry.ErrInvalidSecret, failure{http.StatusBadRequest, "invalid TOTP secret"}},
	{admin.ErrInvalidUserID, failure{http.StatusBadRequest, "invalid user id"}},
	{errInvalidID, failure{http.StatusBadRequest, "invalid id"}},
	{errInvalidBody, failure{http.StatusBadRequest, "invalid request body"}},
	{errEmptyUpdate, failure{http.StatusBadRequest, "no fields to update"}},
}

// gateFailures classify retrieval denials; the message is the one the
// requesting user sees in chat.
var gateFailures = []struct {
	err    error
	status int
}{
	{gate.ErrBlocked, http.StatusForbidden},
	{gate.ErrAttemptsExhausted, http.StatusForbidden},
	{registry.ErrInvalidGroupID, http.StatusBadRequest},
	{gate.ErrConfiguration, http.StatusServiceUnavailable},
	{gate.ErrGeneration, http.StatusServiceUnavailable},
	{gate.ErrRecording, http.StatusInternalServerError},
	{gate.ErrDelivery, http.StatusBadGateway},
}

func (h *Handler) adminError(c echo.Context, err error) error {
	for _, f := range adminFailures {
		if errors.Is(err, f.err) {
			return c.JSON(f.status, openapi.ErrorBody{Error: f.message})
		}
	}

	h.logger.Error("admin request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, openapi.ErrorBody{Error: "internal error"})
}

func (h *Handler) retrievalError(c echo.Context, err error) error {
	for _, f := range gateFailures {
		if errors.Is(err, f.err) {
			return c.JSON(f.status, openapi.ErrorBody{Error: gate.Message(err)})
		}
	}

	h.logger.Error("retrieval failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, openapi.ErrorBody{Error: gate.MessageUnexpected})
}
