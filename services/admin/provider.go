package admin

import (
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/scheduler"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func NewProvider(cfg *config.Config, db *gorm.DB, groups *registry.Service, attempts *ledger.Service, timers *scheduler.Scheduler, logger *logging.Service) *Service {
	return NewService(NewGormStore(db), groups, attempts, timers, Options{
		SeedID:      cfg.Admin.SeedID,
		ProtectSeed: cfg.Admin.ProtectSeed,
		ConfirmTTL:  cfg.Admin.ConfirmTTL,
	}, logger.Named("admin"))
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)
