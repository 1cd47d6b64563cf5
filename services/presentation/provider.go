package presentation

import (
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/fx"
)

func NewProvider(cfg *config.Config, logger *logging.Service) (*Service, error) {
	return New(cfg.Scheduler.TemplatesDir, logger)
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)
