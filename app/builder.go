package app

import (
	"fmt"

	"github.com/tech-arch1tect/edgeguard/config"
	"github.com/tech-arch1tect/edgeguard/database"
	"github.com/tech-arch1tect/edgeguard/gateway"
	authhandler "github.com/tech-arch1tect/edgeguard/handlers/auth"
	"github.com/tech-arch1tect/edgeguard/handlers/health"
	"github.com/tech-arch1tect/edgeguard/middleware/ratelimit"
	"github.com/tech-arch1tect/edgeguard/openapi"
	"github.com/tech-arch1tect/edgeguard/server"
	"github.com/tech-arch1tect/edgeguard/services/auth"
	"github.com/tech-arch1tect/edgeguard/services/events"
	"github.com/tech-arch1tect/edgeguard/services/jwt"
	"github.com/tech-arch1tect/edgeguard/services/logging"
	"github.com/tech-arch1tect/edgeguard/services/refreshtoken"
	"github.com/tech-arch1tect/edgeguard/services/users"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const (
	featureDatabase = "database"
	featureRedis    = "redis"
	featureJWT      = "jwt"
	featureAuth     = "auth"
	featureEvents   = "events"
	featureDocs     = "docs"
	featureGateway  = "gateway"
)

type AppBuilder struct {
	config    *config.Config
	features  map[string]bool
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		features:  make(map[string]bool),
		models:    make([]any, 0),
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

func (b *AppBuilder) WithDatabase(models ...any) *AppBuilder {
	b.features[featureDatabase] = true
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithRedis() *AppBuilder {
	b.features[featureRedis] = true
	return b
}

// WithAuth enables the token issuer, the credential store and the /auth endpoints.
func (b *AppBuilder) WithAuth() *AppBuilder {
	b.features[featureAuth] = true
	b.features[featureJWT] = true
	b.features[featureEvents] = true
	b.WithDatabase(users.Models()...)
	b.models = append(b.models, &refreshtoken.RefreshToken{})
	return b
}

func (b *AppBuilder) WithEvents() *AppBuilder {
	b.features[featureEvents] = true
	return b
}

func (b *AppBuilder) WithDocs() *AppBuilder {
	b.features[featureDocs] = true
	return b
}

// WithGateway enables the edge pipeline: authentication, routing, rate limiting and proxying.
func (b *AppBuilder) WithGateway() *AppBuilder {
	b.features[featureGateway] = true
	b.features[featureJWT] = true
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}
	if err := b.validate(); err != nil {
		return nil, err
	}

	logger, err := b.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{
		config: b.config,
		logger: logger,
	}

	options := b.buildFxOptions(logger)
	options = append(options, fx.Invoke(func(srv *server.Server) {
		app.server = srv
	}))
	if b.features[featureDatabase] {
		options = append(options, fx.Populate(&app.db))
	}

	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
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
	if b.config == nil {
		return fmt.Errorf("config is required")
	}

	if b.config.RateLimit.Store == config.RedisRateLimitStore && b.features[featureGateway] {
		b.features[featureRedis] = true
	}
	if b.config.Events.Driver == config.RedisEventsDriver && b.features[featureEvents] {
		b.features[featureRedis] = true
	}
	if b.features[featureJWT] && b.config.JWT.SecretKey == "" {
		return fmt.Errorf("JWT requires JWT_SECRET_KEY")
	}
	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	return logging.NewLoggingService(b.config)
}

func (b *AppBuilder) buildFxOptions(logger *logging.Service) []fx.Option {
	options := []fx.Option{
		config.NewProvider(b.config),
		fx.Supply(logger),
		fxLogger(b.config, logger),
		server.NewProvider(),
	}

	if b.features[featureDatabase] {
		options = append(options, fx.Supply(database.WithModels(b.models...)), database.Module)
	}
	if b.features[featureRedis] {
		options = append(options, database.RedisModule)
	}
	if b.features[featureJWT] {
		options = append(options, jwt.Options)
	}
	if b.features[featureEvents] {
		options = append(options, events.Module)
	}
	if b.features[featureDocs] {
		options = append(options, openapi.Module)
	}
	if b.features[featureAuth] {
		options = append(options,
			refreshtoken.Options,
			users.Module,
			auth.Module,
			authhandler.Module,
		)
	}
	if b.features[featureGateway] {
		options = append(options,
			ratelimit.Module,
			gateway.Module,
			health.Module,
		)
	}

	return append(options, b.fxOptions...)
}

// fxLogger surfaces the dependency graph only when debugging.
func fxLogger(cfg *config.Config, logger *logging.Service) fx.Option {
	if cfg.Log.Level != string(logging.Debug) {
		return fx.NopLogger
	}
	return fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Logger().Named("fx")}
	})
}
