package ledger

import (
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func NewProvider(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	return NewService(NewGormStore(db), cfg.Ledger.DefaultAttempts, logger.Named("ledger"))
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)
