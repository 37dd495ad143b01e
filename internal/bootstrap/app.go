package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/locvowork/attendance_bot/internal/config"
	"github.com/locvowork/attendance_bot/internal/conversation"
	"github.com/locvowork/attendance_bot/internal/database"
	"github.com/locvowork/attendance_bot/internal/handler"
	"github.com/locvowork/attendance_bot/internal/logger"
	"github.com/locvowork/attendance_bot/internal/repository"
	"github.com/locvowork/attendance_bot/internal/service"
	"github.com/locvowork/attendance_bot/internal/telegram"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

type App struct {
	Echo     *echo.Echo
	DB       *sql.DB
	API      *tgbotapi.BotAPI
	Bot      *telegram.Bot
	Sessions *conversation.SessionManager
}

func NewApp() *App {
	e := echo.New()
	e.HideBanner = true
	return &App{
		Echo: e,
	}
}

// Initialize wires the application. On failure anything it opened is
// closed again.
func (a *App) Initialize(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			if closeErr := a.Close(); closeErr != nil {
				logger.ErrorLog(ctx, "Closing database after failed start: %v", closeErr)
			}
		}
	}()

	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	// Initialize logging
	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	for _, w := range cfg.Warnings() {
		logger.WarnLog(ctx, "%s", w)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	// Initialize database connection
	db, err := database.NewPostgresDB(ctx, database.Config{
		URL:             cfg.DATABASE_URL,
		MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
		MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
		ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
		ConnectRetries:  cfg.DB_CONNECT_RETRIES,
		ConnectDelay:    cfg.DB_CONNECT_DELAY,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	logger.InfoLog(ctx, "Database schema is up to date")

	// Initialize dependencies
	empRepo := repository.NewEmployeeRepository(db)
	attRepo := repository.NewAttendanceRepository(db)
	repRepo := repository.NewReportRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	ledger := service.NewLedger(empRepo, attRepo, repRepo, cfg.Location())
	gate := service.NewAccessGate(adminRepo, cfg.ADMIN_CACHE)
	exporter := service.NewExportService(ledger)

	if cfg.ADMIN_ID > 0 {
		if _, err := gate.Grant(ctx, cfg.ADMIN_ID, cfg.ADMIN_USERNAME); err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
		logger.InfoLog(ctx, "Admin %d is on the allow-list", cfg.ADMIN_ID)
	}

	a.Sessions = conversation.NewSessionManager(cfg.SESSION_IDLE_TIMEOUT)
	driver := conversation.NewDriver(ledger, gate, exporter, a.Sessions)

	api, err := telegram.Connect(cfg.BOT_TOKEN, cfg.BOT_DEBUG)
	if err != nil {
		return err
	}
	a.API = api
	a.Bot = telegram.NewBot(api, driver, telegram.NewDispatcher(cfg.DISPATCH_WORKERS))

	// Register Middlewares
	a.RegisterMiddlewares()

	// Register Routes
	a.RegisterRoutes(handler.NewHealthHandler(db), handler.NewExportHandler(exporter), cfg.EXPORT_TOKEN)

	return nil
}

// Close releases the database connection. It is safe to call more than once.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	err := a.DB.Close()
	a.DB = nil
	return err
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
}

// RegisterRoutes mounts the health checks, and the export download when
// exportToken is set.
func (a *App) RegisterRoutes(health *handler.HealthHandler, export *handler.ExportHandler, exportToken string) {
	a.Echo.GET("/healthz", health.LivenessHandler)
	a.Echo.GET("/readyz", health.ReadinessHandler)

	if exportToken == "" {
		return
	}
	exportGroup := a.Echo.Group("/export", handler.BearerAuth(exportToken))
	exportGroup.GET("/attendance.xlsx", export.XLSXHandler)
	exportGroup.GET("/attendance.csv", export.CSVHandler)
}

// Run serves HTTP and polls the chat until ctx is done, then shuts both
// down and closes the database.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		err := a.Echo.Start(":" + strconv.Itoa(config.DefaultEnvConfig.APP_PORT))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLog(ctx, "HTTP server stopped: %v", err)
			httpErr <- err
			cancel()
		}
	}()

	go a.Sessions.Run(ctx, sweepInterval)

	telegram.Poll(ctx, a.API, a.Bot)
	logger.InfoLog(context.Background(), "Shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		logger.ErrorLog(shutdownCtx, "HTTP shutdown failed: %v", err)
	}

	select {
	case err := <-httpErr:
		return err
	default:
		return nil
	}
}
