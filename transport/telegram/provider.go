package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/gate"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewAPI connects to the Bot API. It returns a nil API when the Telegram
// transport is disabled.
func NewAPI(cfg *config.Config, logger *logging.Service) (API, error) {
	if !cfg.Telegram.Enabled {
		return nil, nil
	}

	client := &http.Client{
		Timeout: cfg.Telegram.RequestTimeout + time.Duration(cfg.Telegram.PollTimeout)*time.Second,
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	logger.Info("connected to telegram", zap.String("bot", bot.Self.UserName))
	return bot, nil
}

// NewTransport falls back to the logging transport without an API.
func NewTransport(api API, logger *logging.Service) transport.Transport {
	if api == nil {
		logger.Warn("telegram disabled, messages are only logged")
		return transport.NewLog(logger.Named("transport"))
	}
	return NewClient(api, logger.Named("telegram"))
}

func NewPollerProvider(cfg *config.Config, api API, g *gate.Gate, logger *logging.Service) *Poller {
	if api == nil {
		return nil
	}
	return NewPoller(api, g, cfg.Telegram.PollTimeout, cfg.Telegram.RequestTimeout, logger.Named("poller"))
}

func RegisterHooks(lc fx.Lifecycle, p *Poller) {
	if p == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return p.Stop(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewAPI, NewTransport, NewPollerProvider),
	fx.Invoke(RegisterHooks),
)
