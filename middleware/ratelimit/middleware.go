package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	jwtmiddleware "github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/middleware/jwt"
	"github.com/labstack/echo/v4"
)

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      CountingMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
}

func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}

	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}

	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = CallerKeyGenerator
	}

	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}

	if cfg.CountMode == "" {
		cfg.CountMode = CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.KeyGenerator(c)
			now := time.Now()
			resetTime := now.Add(cfg.Period)

			count, existingResetTime, exists := cfg.Store.Get(key)
			if exists {
				resetTime = existingResetTime
			}

			if count >= cfg.Rate {
				setHeaders(c, cfg.Rate, 0, resetTime)
				return cfg.OnLimitReached(c)
			}

			var newCount int
			if cfg.CountMode == CountAll {
				newCount = cfg.Store.Increment(key, resetTime)
			} else {
				newCount = count + 1
				cfg.Store.Set(key, newCount, resetTime)
			}

			setHeaders(c, cfg.Rate, max(cfg.Rate-newCount, 0), resetTime)

			err := next(c)

			if cfg.CountMode != CountAll {
				status := c.Response().Status
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}

				shouldCount := false
				switch cfg.CountMode {
				case CountFailures:
					shouldCount = status >= 400
				case CountSuccess:
					shouldCount = status < 400
				}

				switch {
				case shouldCount:
					cfg.Store.Set(key, count+1, resetTime)
				case count > 0:
					cfg.Store.Set(key, count, resetTime)
				default:
					cfg.Store.Reset(key)
				}
			}

			return err
		}
	}
}

func setHeaders(c echo.Context, limit, remaining int, reset time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

// CallerKeyGenerator keys by the authenticated caller, falling back to
// the client IP for anonymous requests.
func CallerKeyGenerator(c echo.Context) string {
	if userID := jwtmiddleware.GetUserID(c); userID != 0 {
		return "rate_limit:user:" + strconv.FormatInt(userID, 10)
	}
	return IPKeyGenerator(c)
}

func IPKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()
	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}
	return "rate_limit:ip:" + realIP
}

func DefaultOnLimitReached(c echo.Context) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, slow down")
}
