package alert

import (
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/gate"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/fx"
)

func NewProvider(cfg *config.Config, logger *logging.Service) (gate.Notifier, error) {
	logger = logger.Named("alert")
	if !cfg.Mail.Enabled {
		return NewNop(logger), nil
	}
	return NewMailer(&cfg.Mail, logger)
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)
