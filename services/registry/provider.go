package registry

import (
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// NewProvider builds the registry and ties it to the ledger in both
// directions: the ledger seeds new pairs from group budgets and group
// removal purges ledger rows.
func NewProvider(cfg *config.Config, db *gorm.DB, attempts *ledger.Service, logger *logging.Service) *Service {
	style, err := presentation.ParseStyle(cfg.Scheduler.DefaultStyle)
	if err != nil {
		logger.Warn("invalid SCHEDULER_DEFAULT_STYLE, falling back to full")
		style = presentation.StyleFull
	}

	svc := NewService(NewGormStore(db), Defaults{
		Cadence:  cfg.Scheduler.DefaultCadence,
		Style:    style,
		Timezone: cfg.Scheduler.DefaultTimezone,
		Attempts: cfg.Ledger.DefaultAttempts,
	}, logger.Named("registry"))

	svc.SetPurger(attempts)
	attempts.SetBudgetSource(svc)
	return svc
}

var Module = fx.Options(
	fx.Provide(NewProvider),
)
