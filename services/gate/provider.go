package gate

import (
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/totp"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	"go.uber.org/fx"
)

func NewProvider(attempts *ledger.Service, groups *registry.Service, codes *totp.Generator, tr transport.Transport, notifier Notifier, logger *logging.Service) *Gate {
	return New(attempts, groups, codes, tr, notifier, logger.Named("gate"))
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)
