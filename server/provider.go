package server

import (
	"context"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewProvider(cfg *config.Config, logger *logging.Service) *Server {
	return New(cfg, logger.Named("http"))
}

// RegisterHooks serves in the background while SERVER_ENABLED is set.
func RegisterHooks(lc fx.Lifecycle, cfg *config.Config, srv *Server, logger *logging.Service) {
	if !cfg.Server.Enabled {
		logger.Info("HTTP server disabled")
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)

// Hooks must be included after the API routes are registered.
var Hooks = fx.Options(
	fx.Invoke(RegisterHooks),
)
