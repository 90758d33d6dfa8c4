package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"photobooth/internal/assets"
	"photobooth/internal/compose"
	"photobooth/internal/config"
	"photobooth/internal/logger"
	"photobooth/internal/repository/sqlite"
	"photobooth/internal/route"
	"photobooth/internal/service/booth"
	"photobooth/internal/service/camera"
	"photobooth/internal/service/capture"
	"photobooth/internal/service/storage"
	"photobooth/internal/service/websocket"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	hubService *websocket.HubService
	manager    *booth.Manager
	handler    http.Handler
}

// NewApp wires storage, the booth manager and the router from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	fonts, err := compose.LoadFonts()
	if err != nil {
		db.Close()
		log.Close()
		return nil, err
	}

	repo := sqlite.NewStripRepository(db)
	store := storage.NewStripStore(cfg.ExportDirectory, repo, log)
	hub := websocket.NewHubService(log)

	mng := booth.NewManager(cfg, booth.Options{
		Catalog:    assets.Default(),
		Resolver:   assets.NewLoader(os.DirFS(cfg.AssetDirectory)),
		Fonts:      fonts,
		Store:      store,
		Hub:        hub,
		NewSource:  sourceFactory(cfg, log),
		CameraMode: cfg.CameraMode,
	}, log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		hubService: hub,
		manager:    mng,
		handler:    route.SetupRoutes(cfg, log, mng, hub, repo, store),
	}, nil
}

// sourceFactory picks the frame source for new sessions.
func sourceFactory(cfg *config.Config, log *logger.Logger) booth.SourceFactory {
	switch cfg.CameraMode {
	case config.CameraModeDevice:
		return func() capture.FrameSource {
			return camera.NewDeviceSource(cfg.CameraDevice, log)
		}
	case config.CameraModeUDP:
		return func() capture.FrameSource {
			return capture.NewUDPSource(cfg.CameraUDPPort, log)
		}
	}
	return func() capture.FrameSource {
		return capture.NewPushSource()
	}
}

// Run serves HTTP until ctx is cancelled and then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.hubService.Run(ctx) })
	g.Go(func() error { return a.manager.Run(ctx) })
	g.Go(func() error {
		fmt.Printf("📸 Photobooth Server\n")
		fmt.Printf("📍 URL: %s\n", a.config.PublicURL)
		fmt.Printf("🎥 Camera: %s\n", a.config.CameraMode)
		fmt.Printf("📁 Exports: %s\n", a.config.ExportDirectory)
		a.logger.Info("Listening on %s", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("Shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the database and log files.
func (a *App) Close() error {
	dbErr := a.db.Close()
	logErr := a.logger.Close()
	return errors.Join(dbErr, logErr)
}
