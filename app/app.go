package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/server"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/admin"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/gate"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/scheduler"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	db     *gorm.DB
	server *server.Server

	admin    *admin.Service
	groups   *registry.Service
	attempts *ledger.Service
	timers   *scheduler.Scheduler
	gate     *gate.Gate
}

func (a *App) Start() error {
	return a.fx.Start(context.Background())
}

func (a *App) StartTest() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.fx.Start(ctx)
}

// Run starts the bot and blocks until SIGINT or SIGTERM.
func (a *App) Run() {
	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info("received shutdown signal, stopping gracefully", zap.String("signal", sig.String()))

	a.Stop()
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *App) StopTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		a.logger.Error("failed to stop test application", zap.Error(err))
	}
}

func (a *App) Server() *echo.Echo {
	if a.server == nil {
		return nil
	}
	return a.server.Echo()
}

func (a *App) Database() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Admin() *admin.Service {
	return a.admin
}

func (a *App) Registry() *registry.Service {
	return a.groups
}

func (a *App) Ledger() *ledger.Service {
	return a.attempts
}

func (a *App) Scheduler() *scheduler.Scheduler {
	return a.timers
}

func (a *App) Gate() *gate.Gate {
	return a.gate
}
