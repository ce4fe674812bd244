package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/sirupsen/logrus"

	"netviz/internal/codec"
	"netviz/internal/config"
	"netviz/internal/handler"
	"netviz/internal/hub"
	"netviz/internal/loader"
	"netviz/internal/logging"
	"netviz/internal/metrics"
	"netviz/internal/repository"
	"netviz/internal/repository/file"
	"netviz/internal/repository/sqlite"
	"netviz/internal/service"
	"netviz/internal/watcher"
)

// flags holds command line overrides; empty values keep the config file's
type flags struct {
	configPath string
	addr       string
	dataPath   string
	backend    string
	logLevel   string
	seedPath   string
	writePath  string
}

func parseFlags(args []string) (*flags, error) {
	parser := argparse.NewParser("netviz-server",
		"Real-time network topology sync server")

	configPath := parser.String("c", "config", &argparse.Options{
		Help: "Path to the config file (default: search $NETVIZ_CONFIG, ./netviz.yaml, ~/.config/netviz, /etc/netviz)",
	})
	addr := parser.String("a", "addr", &argparse.Options{
		Help: "HTTP listen address",
	})
	dataPath := parser.String("d", "data", &argparse.Options{
		Help: "Topology file or SQLite database path",
	})
	backend := parser.Selector("b", "backend", []string{"file", "sqlite"}, &argparse.Options{
		Help: "Persistence backend",
	})
	logLevel := parser.Selector("l", "log-level", []string{"trace", "debug", "info", "warn", "error"}, &argparse.Options{
		Help: "Log level",
	})

	seedPath := parser.String("s", "seed", &argparse.Options{
		Help: "Host inventory YAML to import when the stored topology is empty",
	})

	writePath := parser.String("w", "write-config", &argparse.Options{
		Help: "Write the effective config to this path and exit",
	})

	if err := parser.Parse(args); err != nil {
		return nil, errors.New(parser.Usage(err))
	}

	return &flags{
		configPath: *configPath,
		addr:       *addr,
		dataPath:   *dataPath,
		backend:    *backend,
		logLevel:   *logLevel,
		seedPath:   *seedPath,
		writePath:  *writePath,
	}, nil
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(f *flags) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if f.configPath != "" {
		cfg, path, err = config.LoadFromPath(f.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}

	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.dataPath != "" {
		cfg.Storage.Path = f.dataPath
	}
	if f.backend != "" {
		cfg.Storage.Backend = f.backend
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}

	return cfg, path, cfg.Validate()
}

// openRepository builds the configured persistence backend. The returned
// path is the file to watch for external edits, empty when not applicable.
func openRepository(cfg config.StorageConfig) (repository.Repository, string, error) {
	switch cfg.Backend {
	case "sqlite":
		repo, err := sqlite.New(cfg.Path)
		return repo, "", err
	default:
		c, err := codec.ForFormat(cfg.Format)
		if err != nil {
			return nil, "", err
		}
		repo, err := file.New(cfg.Path, c)
		if err != nil {
			return nil, "", err
		}
		return repo, repo.Path(), nil
	}
}

func main() {
	f, err := parseFlags(os.Args)
	if err != nil {
		fmt.Fprint(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "netviz: %v\n", err)
		os.Exit(1)
	}
}

func run(f *flags) error {
	cfg, cfgPath, err := loadConfig(f)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if f.writePath != "" {
		if err := cfg.Save(f.writePath); err != nil {
			return fmt.Errorf("config: %w", err)
		}
		fmt.Printf("Wrote config to %s\n", f.writePath)
		return nil
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if cfgPath != "" {
		log.WithField("path", cfgPath).Info("Loaded config")
	} else {
		log.Info("No config file found, using defaults")
	}
	log.Info(cfg.Summary())

	repo, watchPath, err := openRepository(cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer repo.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// Initialize event bus and topology service
	eventBus := service.NewEventBus()
	svc := service.NewTopologyService(service.NewStore(), repo, eventBus, cfg.Topology.ID, log).
		WithMetrics(m)

	// Corrupt data is fatal: starting empty would overwrite it on the first save
	if err := svc.Load(context.Background()); err != nil {
		return err
	}

	if f.seedPath != "" {
		if err := seedTopology(context.Background(), svc, f.seedPath, log); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize WebSocket hub
	wsHub := hub.New(log).WithMetrics(m)
	hubCtx, hubCancel := context.WithCancel(ctx)
	defer hubCancel()
	go wsHub.Run(hubCtx)

	// Connect event bus to hub
	eventChan := make(chan service.Event, 100)
	eventBus.Subscribe(eventChan)
	go handler.ForwardEvents(hubCtx, eventChan, wsHub, cfg.Sync.Broadcast, log)

	if cfg.Sync.WatchFile {
		if watchPath == "" {
			log.Warn("sync.watch_file is only supported by the file backend, ignoring")
		} else {
			startWatcher(ctx, watchPath, svc, log)
		}
	}

	sessions := handler.NewSessionHandler(svc, wsHub, handler.SessionOptions{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ReadBufferSize:  cfg.Server.ReadBufferSize,
		WriteBufferSize: cfg.Server.WriteBufferSize,
		SendBuffer:      cfg.Server.SendBuffer,
		MaxMessageBytes: cfg.Server.MaxMessageBytes,
		PingInterval:    cfg.Server.PingInterval.Duration(),
		Acknowledge:     cfg.Sync.Acknowledge,
	}, log).WithMetrics(m)

	// Setup routes
	mux := http.NewServeMux()
	mux.Handle("GET "+cfg.Server.WSPath, sessions)
	mux.Handle("/healthz", handler.NewHealthHandler(svc, wsHub, log))
	if m != nil {
		mux.Handle("GET "+cfg.Metrics.Path, m.Handler())
	}

	// Apply middleware
	finalHandler := handler.Chain(mux,
		handler.Recover(log),
		handler.CORS(cfg.Server.AllowedOrigins),
		handler.Logger(log),
	)

	// WebSocket connections are long-lived, so no read/write timeouts
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down server...")
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("server: %w", err)
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server shutdown error")
	}

	// Closing the hub ends every session; in-flight mutations still finish
	hubCancel()
	eventBus.Close()
	waitSessions(shutdownCtx, sessions, log)

	log.Info("Server stopped")
	return nil
}

// seedTopology imports an inventory into an empty topology. A topology that
// already has devices is left alone.
func seedTopology(ctx context.Context, svc *service.TopologyService, path string, log logrus.FieldLogger) error {
	existing, err := svc.Snapshot()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.WithField("devices", len(existing)).Info("Topology not empty, skipping seed")
		return nil
	}

	devices, err := loader.LoadInventory(path)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	result, err := svc.Apply(ctx, "seed", loader.SeedBatch(devices))
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"path":    path,
		"devices": result.Applied,
	}).Info("Seeded topology from inventory")
	return nil
}

func startWatcher(ctx context.Context, path string, svc *service.TopologyService, log logrus.FieldLogger) {
	w := watcher.New(path, func() {
		changed, err := svc.Reload(ctx)
		switch {
		case err != nil:
			log.WithError(err).WithField("path", path).Error("Ignoring unreadable topology file")
		case changed:
			log.WithField("path", path).Info("Reloaded topology after external edit")
		}
	}, log)

	go func() {
		if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("File watcher stopped")
		}
	}()
}

func waitSessions(ctx context.Context, sessions *handler.SessionHandler, log logrus.FieldLogger) {
	done := make(chan struct{})
	go func() {
		sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("Timed out waiting for sessions to close")
	}
}
