package scheduler

import (
	"context"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	"go.uber.org/fx"
)

func NewProvider(cfg *config.Config, groups *registry.Service, tr transport.Transport, renderer *presentation.Service, logger *logging.Service) *Scheduler {
	return New(groups, tr, renderer, logger.Named("scheduler"),
		WithUnit(cfg.Scheduler.CadenceUnit),
		WithSendTimeout(cfg.Scheduler.SendTimeout),
		WithButtonLabel(cfg.Telegram.ButtonLabel),
	)
}

// RegisterHooks re-arms active groups on start. The registry must already
// be loaded, so this invoke has to follow the bootstrap one.
func RegisterHooks(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := s.Start(ctx)
			return err
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
