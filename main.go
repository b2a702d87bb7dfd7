package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"excelviz/adapters/excel"
	"excelviz/adapters/filestore"
	"excelviz/adapters/postgres"
	"excelviz/adapters/render"
	"excelviz/domain/core"
	"excelviz/internal"
	"excelviz/internal/api"
	"excelviz/internal/charting"
	"excelviz/internal/config"
	apperrors "excelviz/internal/errors"
	"excelviz/internal/migration"
	"excelviz/internal/workspace"
	"excelviz/ports"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase connects to PostgreSQL and runs migrations
func initDatabase(ctx context.Context, appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(appConfig.Database.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "database migration failed")
	}
	log.Printf("[Main] Database schema at version %s", migrator.Version())
	return db, nil
}

// projectStore picks PostgreSQL when DATABASE_URL is set, else the filesystem
func projectStore(ctx context.Context, appConfig *config.Config) (ports.ProjectStore, func(), error) {
	if !appConfig.Database.Enabled() {
		store, err := filestore.NewStore(appConfig.Storage.Dir)
		if err != nil {
			return nil, nil, apperrors.StorageError("failed to open settings store", err)
		}
		log.Printf("[Main] Chart settings stored under %s", appConfig.Storage.Dir)
		return store, func() {}, nil
	}

	db, err := initDatabase(ctx, appConfig)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[Main] Chart settings stored in PostgreSQL")
	return postgres.NewSettingsRepository(db), func() { db.Close() }, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)
	logger := internal.DefaultLogger.With("Main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := projectStore(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize settings store: %v", err)
	}
	defer closeStore()

	theme, _ := charting.ParseTheme(appConfig.Charts.DefaultTheme)
	width, height := appConfig.Charts.ImageWidth, appConfig.Charts.ImageHeight
	manager := workspace.NewManager(workspace.ManagerConfig{
		TTL:   appConfig.Charts.SessionTTL,
		Theme: theme,
		NewRenderer: func(core.SessionID) ports.ChartRenderer {
			return render.NewRenderer(width, height)
		},
	})
	go manager.Run(ctx, appConfig.Charts.SweepInterval)

	server := api.NewServer(api.Deps{
		Manager:        manager,
		Projects:       store,
		Uploads:        filestore.NewUploads(appConfig.Storage.UploadDir, appConfig.Storage.MaxUploadBytes()),
		Tabulator:      excel.NewTabulator(excel.DefaultTabulatorConfig()),
		Logger:         internal.DefaultLogger,
		SettleTimeout:  appConfig.Charts.SettleTimeout,
		MaxUploadBytes: appConfig.Storage.MaxUploadBytes(),
		CORSOrigins:    appConfig.Server.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server on http://localhost:%s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
