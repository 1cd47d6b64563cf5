package app

import (
	"fmt"

	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/api"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/config"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/database"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/middleware/ratelimit"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/server"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/admin"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/alert"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/gate"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/jwt"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/ledger"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/logging"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/presentation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/registry"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/reset"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/revocation"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/scheduler"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/services/totp"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport"
	"github.com/NaJiKuN/ChatGPTPlus2FABot-sub000/transport/telegram"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Models lists every table the bot owns.
func Models() []any {
	return []any{&ledger.Attempt{}, &registry.Group{}, &admin.Admin{}, &revocation.RevokedToken{}}
}

type AppBuilder struct {
	config    *config.Config
	logger    *logging.Service
	transport transport.Transport
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithLogger replaces the logger built from the LOG_ settings.
func (b *AppBuilder) WithLogger(logger *logging.Service) *AppBuilder {
	b.logger = logger
	return b
}

// WithTransport replaces the Telegram transport, e.g. with a recording one.
func (b *AppBuilder) WithTransport(tr transport.Transport) *AppBuilder {
	if tr == nil {
		b.addError("transport cannot be nil")
		return b
	}
	b.transport = tr
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		var err error
		logger, err = b.createLogger()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	db, err := database.ProvideDatabase(*b.config, database.WithModels(Models()...), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		config: b.config,
		logger: logger,
		db:     db,
	}

	options := b.buildFxOptions(db, logger)
	options = append(options, fx.Populate(
		&app.server,
		&app.admin,
		&app.groups,
		&app.attempts,
		&app.timers,
		&app.gate,
	))

	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to wire application: %w", err)
	}

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, fmt.Errorf("%s", msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %v", b.errors)
	}
	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	if b.config == nil {
		return nil, fmt.Errorf("config required for logger creation")
	}
	return logging.NewLoggingService(b.config)
}

// buildFxOptions assembles the modules. Providers may come in any order but
// invokes register lifecycle hooks in sequence: state is loaded and seeded
// before timers are re-armed, and inbound traffic is accepted last.
func (b *AppBuilder) buildFxOptions(db *gorm.DB, logger *logging.Service) []fx.Option {
	options := []fx.Option{
		config.NewProvider(b.config),
		fx.Supply(logger),
		fx.Supply(db),
		fx.NopLogger,
		fx.Invoke(database.RegisterHooks),

		ledger.Module,
		registry.Module,
		presentation.Module,
		totp.Module,
		alert.Module,
		gate.Module,
		admin.Module,
		jwt.Options,
		revocation.Module,
		ratelimit.Module,
		server.Module,
		api.Module,

		fx.Invoke(Bootstrap),
		scheduler.Module,
		reset.Module,
		telegram.Module,
		server.Hooks,
	}

	if b.transport != nil {
		tr := b.transport
		options = append(options, fx.Decorate(func(transport.Transport) transport.Transport {
			return tr
		}))
	}

	return append(options, b.fxOptions...)
}
