// Package e2etesting boots the whole bot behind a real HTTP listener and
// drives it the way an external caller would.
package e2etesting

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/app"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/testutils"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type E2EApp struct {
	App             *app.App
	BaseURL         string
	Config          *config.Config
	DB              *gorm.DB
	Tokens          *jwt.Service
	Transport       *testutils.RecordingTransport
	CoverageTracker *CoverageTracker

	readinessTimeout time.Duration
}

type TestConfig struct {
	DatabaseURL      string
	SeedFile         string
	OverrideConfig   func(*config.Config) *config.Config
	EnableCoverage   bool
	ExcludePatterns  []string
	ReadinessTimeout time.Duration
}

func createTestConfig(testConfig *TestConfig) *config.Config {
	cfg := testutils.GetTestConfig()
	cfg.Server = config.ServerConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    "0",
	}
	cfg.Log = config.LogConfig{Level: "error", Format: "json", Output: "stdout"}
	cfg.Database.DSN = testConfig.DatabaseURL
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = ":memory:"
	}
	cfg.Scheduler.CadenceUnit = time.Hour
	cfg.Seed.File = testConfig.SeedFile

	if testConfig.OverrideConfig != nil {
		cfg = testConfig.OverrideConfig(cfg)
	}
	return cfg
}

// BuildTestApp wires the bot with a recording transport in place of
// Telegram.
func BuildTestApp(builder *app.AppBuilder, testConfig *TestConfig) (*E2EApp, error) {
	cfg := createTestConfig(testConfig)
	recorder := &testutils.RecordingTransport{}

	var capturedDB *gorm.DB
	var capturedTokens *jwt.Service

	builtApp, err := builder.
		WithConfig(cfg).
		WithTransport(recorder).
		WithFxOptions(fx.Invoke(func(db *gorm.DB, tokens *jwt.Service) {
			capturedDB = db
			capturedTokens = tokens
		})).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build test app: %w", err)
	}

	readinessTimeout := testConfig.ReadinessTimeout
	if readinessTimeout == 0 {
		readinessTimeout = 5 * time.Second
	}

	e2eApp := &E2EApp{
		App:              builtApp,
		Config:           cfg,
		DB:               capturedDB,
		Tokens:           capturedTokens,
		Transport:        recorder,
		readinessTimeout: readinessTimeout,
	}

	if testConfig.EnableCoverage {
		e2eApp.CoverageTracker = NewCoverageTracker()
		for _, pattern := range testConfig.ExcludePatterns {
			e2eApp.CoverageTracker.AddExcludePattern(pattern)
		}
		if echoServer := builtApp.Server(); echoServer != nil {
			echoServer.Use(e2eApp.CoverageTracker.TrackingMiddleware())
		}
	}

	return e2eApp, nil
}

func (e *E2EApp) Start(ctx context.Context) error {
	if e.App == nil {
		return fmt.Errorf("application not built - call BuildTestApp first")
	}

	if err := e.App.StartTest(); err != nil {
		return fmt.Errorf("failed to start test app: %w", err)
	}

	addr, err := e.waitForListener(ctx)
	if err != nil {
		return fmt.Errorf("server failed to become ready: %w", err)
	}
	e.BaseURL = "http://" + addr.String()

	if e.CoverageTracker != nil {
		e.CoverageTracker.RegisterRoutes(e.App.Server())
	}
	return nil
}

func (e *E2EApp) waitForListener(ctx context.Context) (net.Addr, error) {
	echoServer := e.App.Server()
	if echoServer == nil {
		return nil, fmt.Errorf("echo server not initialized")
	}

	deadline := time.After(e.readinessTimeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if addr := echoServer.ListenerAddr(); addr != nil {
			conn, err := net.DialTimeout("tcp", addr.String(), 100*time.Millisecond)
			if err == nil {
				conn.Close()
				return addr, nil
			}
		}
		select {
		case <-ticker.C:
		case <-deadline:
			return nil, fmt.Errorf("timeout after %s waiting for HTTP listener", e.readinessTimeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (e *E2EApp) Stop() {
	if e.App != nil {
		e.App.StopTest()
	}
}

// Client returns an HTTP client acting as userID.
func (e *E2EApp) Client(userID int64) (*HTTPClient, error) {
	token, err := e.Tokens.GenerateToken(userID, time.Hour)
	if err != nil {
		return nil, err
	}
	return &HTTPClient{
		Client:  &http.Client{Timeout: 10 * time.Second},
		BaseURL: e.BaseURL,
		Token:   token,
	}, nil
}

func (e *E2EApp) AssertMinimumCoverage(t interface {
	Fatalf(format string, args ...any)
}, minPercent float64) {
	if e.CoverageTracker == nil {
		t.Fatalf("Coverage tracking not enabled")
		return
	}
	stats := e.CoverageTracker.GetStats()
	if stats.Coverage < minPercent {
		t.Fatalf("Coverage %.1f%% is below minimum required %.1f%%; missing: %v",
			stats.Coverage, minPercent, stats.MissingRoutes)
	}
}
