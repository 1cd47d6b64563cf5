package totp

import (
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/fx"
)

func NewProvider(logger *logging.Service) *Generator {
	return NewGenerator(logger)
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)
