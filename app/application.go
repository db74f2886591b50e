// Package app wires the application's components together. Everything is
// constructed explicitly here and passed down; there are no package-level
// singletons, so tests can build isolated instances.
package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"linkhub.app/api"
	"linkhub.app/breaker"
	"linkhub.app/cache"
	"linkhub.app/config"
	"linkhub.app/database"
	"linkhub.app/lockout"
	"linkhub.app/metrics"
	"linkhub.app/pkg/logger"
	"linkhub.app/providers"
	"linkhub.app/ratelimit"
	"linkhub.app/repository"
	"linkhub.app/scheduler"
	"linkhub.app/service"
	"linkhub.app/shutdown"
)

// Application represents the main application with all its dependencies
type Application struct {
	config      *config.Config
	log         *logger.Logger
	db          *gorm.DB
	registry    *metrics.Registry
	store       cache.Store
	limiters    []*ratelimit.Limiter
	circuit     *breaker.Breaker
	server      *api.Server
	scheduler   *scheduler.Scheduler
	coordinator *shutdown.Coordinator
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	app.log = logger.New(logger.ParseLevel(app.config.Log.Level))

	if err := app.initializeDatabase(); err != nil {
		return nil, err
	}

	if err := app.initializeRuntime(); err != nil {
		return nil, err
	}

	app.initializeServices()
	app.registerShutdownHandlers()

	return app, nil
}

func (app *Application) loadConfiguration() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	return nil
}

func (app *Application) initializeDatabase() error {
	app.log.Info("Initializing database...", nil)

	db, err := database.InitDB(app.config.Database)
	if err != nil {
		return fmt.Errorf("initialize database connection: %w", err)
	}

	if err := database.RunMigrations(db); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}

	app.db = db
	return nil
}

// initializeRuntime builds the resilience components: metrics registry,
// cache, rate limiters, circuit breaker, shutdown coordinator.
func (app *Application) initializeRuntime() error {
	app.registry = metrics.NewRegistry()

	store, err := cache.NewStore(cache.FactoryConfig{
		Type: cache.TypeFromString(app.config.Cache.Type),
		Memory: cache.MemoryConfig{
			MaxSize:       app.config.Cache.MaxSize,
			DefaultTTL:    app.config.Cache.TTL,
			SweepInterval: app.config.Cache.SweepInterval,
		},
		Redis: &cache.RedisConfig{
			Addr:         app.config.Cache.RedisAddr,
			Password:     app.config.Cache.RedisPassword,
			DB:           app.config.Cache.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	app.store = cache.NewInstrumentedStore(store, app.config.Cache.Type, app.registry, app.log)

	app.circuit = breaker.New(breaker.Config{
		Name:             "ai",
		FailureThreshold: app.config.Breaker.FailureThreshold,
		ResetTimeout:     app.config.Breaker.ResetTimeout,
		SuccessThreshold: app.config.Breaker.SuccessThreshold,
		RequestTimeout:   app.config.Breaker.RequestTimeout,
		OnStateChange: func(name string, from, to breaker.State) {
			app.log.Warn("circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	app.coordinator = shutdown.NewCoordinator(shutdown.Config{
		DefaultHandlerTimeout: app.config.Shutdown.HandlerTimeout,
		DrainTimeout:          app.config.Shutdown.DrainTimeout,
	}, shutdown.NewInflightTracker(), app.log)

	return nil
}

func (app *Application) initializeServices() {
	rl := app.config.RateLimit
	newLimiter := func(policy string, max int, window time.Duration) *ratelimit.Limiter {
		l := ratelimit.New(ratelimit.Config{
			Policy:        policy,
			MaxRequests:   max,
			Window:        window,
			SweepInterval: rl.SweepInterval,
		})
		app.limiters = append(app.limiters, l)
		return l
	}

	loginLimiter := newLimiter("login", rl.LoginMax, rl.LoginWindow)
	limiters := api.Limiters{
		API:    newLimiter("api", rl.APIMax, rl.APIWindow),
		Signup: newLimiter("signup", rl.SignupMax, rl.SignupWindow),
		Click:  newLimiter("click", rl.ClickMax, rl.ClickWindow),
	}

	profileRepo := repository.NewProfileRepository(app.db, app.registry, app.log)
	userRepo := repository.NewUserRepository(app.db, app.registry, app.log)
	lockoutRepo := repository.NewLockoutRepository(app.db, app.registry, app.log)

	tracker := lockout.NewTracker(lockoutRepo, lockout.Config{
		MaxAttempts:       app.config.Lockout.MaxAttempts,
		BaseDuration:      app.config.Lockout.BaseDuration,
		IncrementDuration: app.config.Lockout.IncrementDuration,
	})

	profileService := service.NewProfileService(profileRepo, app.store, app.config.Cache.TTL, app.log)
	authService := service.NewAuthService(userRepo, tracker, loginLimiter, app.registry, app.log)
	aiProvider := providers.NewAIProvider(&app.config.AI)
	aiService := service.NewAIService(aiProvider, app.circuit, app.registry, app.log)

	app.server = api.NewServer(api.ServerOptions{
		DB:             app.db,
		Config:         app.config,
		ProfileService: profileService,
		AuthService:    authService,
		AIService:      aiService,
		Cache:          app.store,
		Breaker:        app.circuit,
		Limiters:       limiters,
		Registry:       app.registry,
		Logger:         app.log,
		Inflight:       app.coordinator.Inflight(),
	})

	app.scheduler = scheduler.NewScheduler(app.store, app.circuit, app.registry, app.log, 30*time.Second)
}

// registerShutdownHandlers wires cleanup steps in dependency order: stop
// taking traffic, stop background loops, flush state, close the database.
func (app *Application) registerShutdownHandlers() {
	handlers := []shutdown.Handler{
		{
			Name: "http_server",
			Func: func(ctx context.Context) error {
				return app.server.Close()
			},
		},
		{
			Name: "scheduler",
			Func: func(ctx context.Context) error {
				app.scheduler.Stop()
				return nil
			},
		},
		{
			Name: "rate_limiters",
			Func: func(ctx context.Context) error {
				for _, l := range app.limiters {
					l.Stop()
				}
				return nil
			},
		},
		{
			Name: "cache",
			Func: func(ctx context.Context) error {
				app.store.Stop()
				return nil
			},
		},
		{
			Name: "database",
			Func: func(ctx context.Context) error {
				return database.CloseDB(app.db)
			},
		},
	}

	for _, h := range handlers {
		if err := app.coordinator.Register(h); err != nil {
			app.log.Warn("shutdown handler registration failed", map[string]interface{}{
				"handler": h.Name,
				"error":   err.Error(),
			})
		}
	}
}

// Start starts the application
func (app *Application) Start() error {
	app.log.Info("Starting scheduler...", nil)
	go app.scheduler.Start()

	app.log.Info("Starting HTTP server", map[string]interface{}{"port": app.config.Server.Port})
	return app.server.Start()
}

// Shutdown runs the coordinator once and returns the process exit code.
func (app *Application) Shutdown(reason string) int {
	return app.coordinator.Trigger(reason)
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the application logger
func (app *Application) Logger() *logger.Logger {
	return app.log
}
