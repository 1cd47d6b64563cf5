package ratelimit

import (
	"context"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// Retrieval is the rate limit applied to code retrieval requests.
type Retrieval struct {
	Middleware echo.MiddlewareFunc
}

func ProvideRetrievalLimit(lc fx.Lifecycle, cfg *config.Config) Retrieval {
	store := NewMemoryStore()
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			store.Close()
			return nil
		},
	})

	return Retrieval{Middleware: Middleware(&Config{
		Store:  store,
		Rate:   cfg.RateLimit.Rate,
		Period: cfg.RateLimit.Period,
	})}
}

var Module = fx.Options(
	fx.Provide(ProvideRetrievalLimit),
)
