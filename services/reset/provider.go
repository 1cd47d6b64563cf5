package reset

import (
	"context"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewProvider(cfg *config.Config, attempts *ledger.Service, groups *registry.Service, logger *logging.Service) (*Service, error) {
	logger = logger.Named("reset")

	loc, err := presentation.ResolveLocation(cfg.Reset.DailyTimezone)
	if err != nil {
		return nil, err
	}

	return New(attempts, groups, cfg.Reset.DailySpec, loc, logger)
}

// RegisterHooks starts the cron only when the daily reset is enabled.
func RegisterHooks(lc fx.Lifecycle, cfg *config.Config, s *Service, logger *logging.Service) {
	if !cfg.Reset.DailyEnabled {
		logger.Info("daily attempt reset disabled", zap.String("spec", cfg.Reset.DailySpec))
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewProvider),
	fx.Invoke(RegisterHooks),
)
