package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/spine-admin/api"
	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/auth"
	authPostgres "github.com/frahmantamala/spine-admin/internal/auth/postgres"
	"github.com/frahmantamala/spine-admin/internal/core/events"
	"github.com/frahmantamala/spine-admin/internal/metrics"
	"github.com/frahmantamala/spine-admin/internal/rbac"
	rbacPostgres "github.com/frahmantamala/spine-admin/internal/rbac/postgres"
	"github.com/frahmantamala/spine-admin/internal/transport"
	"github.com/frahmantamala/spine-admin/internal/transport/rest"
	"github.com/frahmantamala/spine-admin/internal/transport/swagger"
	"github.com/frahmantamala/spine-admin/internal/user"
	userPostgres "github.com/frahmantamala/spine-admin/internal/user/postgres"
	"github.com/frahmantamala/spine-admin/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Router   *chi.Mux
	Metrics  *metrics.Metrics
	Events   *events.EventBus
	AuditLog *events.AuditLog
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		deps.Logger.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.Events.Drain(ctx); err != nil {
			deps.Logger.Warn("event handlers still running at shutdown", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	if _, err := swagger.Load(context.Background(), api.OpenAPI); err != nil {
		return err
	}

	base := transport.NewBaseHandler(lg)

	tokens := auth.NewTokenService(
		cfg.Security.JWTSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	authService := auth.NewService(
		authPostgres.NewRepository(deps.Gorm),
		tokens,
		auth.RegistrationPolicy{SelfRegistrableRoles: cfg.Registration.SelfRegistrableRoles},
		cfg.Security.BCryptCost,
		lg,
	).WithEvents(deps.Events).WithMetrics(deps.Metrics)

	rbacService := rbac.NewService(
		rbacPostgres.NewRoleRepository(deps.Gorm, deps.DB),
		cfg.Cache.PermissionCacheSize,
		lg,
	).WithEvents(deps.Events).WithMetrics(deps.Metrics)

	userService := user.NewService(
		userPostgres.NewRepository(deps.Gorm),
		rbacService,
		lg,
	).WithEvents(deps.Events).WithMetrics(deps.Metrics)

	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Health: rest.NewHealthHandler(deps.DB),
		Auth:   auth.NewHandler(base, authService),
		User:   user.NewHandler(base, userService),
		RBAC:   rbac.NewHandler(base, rbacService),
		Authz:  rbac.NewRBACAuthorization(rbacService, deps.Metrics, lg),
		Audit:  rest.NewAuditHandler(base, deps.AuditLog),
	}, rest.Options{
		AllowedOrigins: cfg.Server.Origins(),
		Metrics:        deps.Metrics,
		MetricsPath:    cfg.Observability.Metrics.Path,
		OpenAPI:        api.OpenAPI,
	}, lg)

	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	var m *metrics.Metrics
	if config.Observability.Metrics.Enabled {
		m = metrics.New(config.Observability.Metrics.Namespace, prometheus.NewRegistry())
		m.RegisterRuntimeCollectors()
	}

	bus := events.NewEventBus(lg)
	bus.SubscribeMany(events.AuditEventTypes, auditHandler(lg))
	auditLog := events.NewAuditLog(config.Observability.AuditLogSize)
	bus.SubscribeMany(events.AuditEventTypes, auditLog.Record)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		Router:   chi.NewRouter(),
		Metrics:  m,
		Events:   bus,
		AuditLog: auditLog,
		Logger:   lg,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}
