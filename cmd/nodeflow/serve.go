package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nodeflow/internal/behavior/builtin"
	"nodeflow/internal/config"
	"nodeflow/internal/flow"
	"nodeflow/internal/handler"
	"nodeflow/internal/hub"
	"nodeflow/internal/interaction"
	"nodeflow/internal/logging"
	"nodeflow/internal/metrics"
	"nodeflow/internal/repository/sqlite"
	"nodeflow/internal/service"
	"nodeflow/internal/watcher"
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfgPath != "" {
		logger.Info("config loaded", zap.String("path", cfgPath))
	}
	logger.Info("starting nodeflow", zap.String("summary", cfg.Summary()))

	registry, err := builtin.NewRegistry()
	if err != nil {
		return err
	}

	eventBus := service.NewEventBus()

	opts := []service.Option{
		service.WithLogger(logger.Named("service")),
		service.WithGeometry(boxGeometry(cfg.Geometry)),
		service.WithDragTimeout(cfg.Scene.DragTimeout.Duration()),
	}
	if cfg.Scene.RestoreOnCancel {
		opts = append(opts, service.WithRestorePolicy(interaction.RestoreOnCancel))
	}
	if cfg.Database.Path != "" {
		repo, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer repo.Close()
		logger.Info("scene store opened", zap.String("path", cfg.Database.Path))
		opts = append(opts, service.WithStore(repo))
	}

	svc := service.New(registry, eventBus, opts...)

	if cfg.Scene.File != "" {
		if _, err := svc.LoadFile(cfg.Scene.File); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			logger.Info("scene file does not exist yet", zap.String("path", cfg.Scene.File))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go svc.RunDragExpiry(ctx)

	sseHub := hub.New(logger.Named("hub"))
	go sseHub.Run(ctx)

	hubEvents := make(chan service.Event, 100)
	defer eventBus.Subscribe(hubEvents)()
	go hub.Forward(ctx, sseHub, hubEvents)

	routerCfg := handler.RouterConfig{
		Service:        svc,
		Logger:         logger,
		Events:         sseHub,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector(cfg.Metrics.Namespace)
		metricEvents := make(chan service.Event, 100)
		defer eventBus.Subscribe(metricEvents)()
		go collector.Consume(ctx, metricEvents)
		routerCfg.Metrics = collector.Handler()
		routerCfg.Instrument = collector.Middleware
	}

	if cfg.Scene.File != "" && cfg.Scene.Watch {
		w := watcher.New(cfg.Scene.File, func(path string) {
			if _, err := svc.LoadFile(path); err != nil {
				logger.Warn("scene reload failed", zap.String("path", path), zap.Error(err))
			}
		}, logger.Named("watcher")).WithDebounce(cfg.Scene.Debounce.Duration())
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", zap.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}

	if saveOnExit && cfg.Scene.File != "" {
		if err := svc.SaveFile(cfg.Scene.File); err != nil {
			return err
		}
		logger.Info("scene saved", zap.String("path", cfg.Scene.File))
	}

	logger.Info("server stopped")
	return nil
}

// applyServeFlags lets explicitly set flags override the config file
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = listenAddr
	}
	if flags.Changed("db") {
		cfg.Database.Path = dbPath
	}
	if flags.Changed("scene") {
		cfg.Scene.File = scenePath
	}
	if flags.Changed("watch") {
		cfg.Scene.Watch = watchScene
	}
}

func boxGeometry(g config.GeometryConfig) func(*flow.Model) interaction.Geometry {
	return func(m *flow.Model) interaction.Geometry {
		return &interaction.BoxGeometry{
			Model:       m,
			Width:       g.Width,
			Header:      g.Header,
			PortSpacing: g.PortSpacing,
			HitRadius:   g.HitRadius,
		}
	}
}
