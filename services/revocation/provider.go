package revocation

import (
	"context"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// ProvideRevocationService returns nil when revocation is disabled.
func ProvideRevocationService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	if !cfg.Revocation.Enabled {
		logger.Debug("token revocation disabled in configuration")
		return nil
	}

	logger = logger.Named("revocation")
	return NewService(NewMemoryStoreWithDB(db, logger), logger)
}

// WireRevocationService makes token validation consult the revocation list.
func WireRevocationService(tokens *jwt.Service, svc *Service) {
	if tokens != nil && svc != nil {
		tokens.SetRevocationService(svc)
	}
}

func RegisterHooks(lc fx.Lifecycle, cfg *config.Config, svc *Service) {
	if svc == nil {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := svc.Load(); err != nil {
				return err
			}
			svc.StartCleanupWorker(cfg.Revocation.CleanupPeriod)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			svc.StopCleanupWorker()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(ProvideRevocationService),
	fx.Invoke(WireRevocationService),
	fx.Invoke(RegisterHooks),
)
