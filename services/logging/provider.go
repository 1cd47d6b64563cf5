package logging

import (
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(NewLoggingService),
)

func NewLoggingService(cfg *config.Config) (*Service, error) {
	loggingConfig := Config{
		Level:      LogLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	}

	svc, err := NewService(loggingConfig)
	if err != nil {
		return nil, err
	}

	return svc.With(zap.String("app", cfg.App.Name)), nil
}
