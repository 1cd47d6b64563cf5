package api

import (
	"net/http"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	jwtmiddleware "github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/middleware/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/middleware/ratelimit"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/openapi"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/server"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/admin"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/gate"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

func NewProvider(g *gate.Gate, adminSvc *admin.Service, tokens *jwt.Service, logger *logging.Service) *Handler {
	return NewHandler(g, adminSvc, tokens, logger.Named("api"))
}

func NewDocument(cfg *config.Config) *openapi.OpenAPI {
	return openapi.New(cfg.App.Name, "1.0.0").
		Description("Code retrieval and admin commands for the 2FA bot.")
}

// RegisterRoutes mounts the API behind bearer authentication. Health and
// the API description stay public.
func RegisterRoutes(srv *server.Server, h *Handler, tokens *jwt.Service, limit ratelimit.Retrieval, doc *openapi.OpenAPI) {
	srv.Get("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	srv.Get(Prefix+"/openapi.json", doc.JSONHandler())
	srv.Get(Prefix+"/openapi.yaml", doc.YAMLHandler())

	h.Register(srv.Group(Prefix, jwtmiddleware.RequireJWT(tokens)), doc, limit.Middleware)
}

var Module = fx.Options(
	fx.Provide(NewProvider, NewDocument),
	fx.Invoke(RegisterRoutes),
)
