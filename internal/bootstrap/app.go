package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kodflow/supervizio/internal/application/supervisor"
	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/logging"
	"github.com/kodflow/supervizio/internal/domain/process"
	"github.com/kodflow/supervizio/internal/domain/storage"
	yamlconfig "github.com/kodflow/supervizio/internal/infrastructure/config/yaml"
	"github.com/kodflow/supervizio/internal/infrastructure/metrics/prom"
	"github.com/kodflow/supervizio/internal/infrastructure/persistence/crashcache"
	grpctransport "github.com/kodflow/supervizio/internal/infrastructure/transport/grpc"
)

// version is overridden at build time via -ldflags, mirroring the
// teacher's version plumbing and dispatcher.daemonVersion.
var version = "dev"

// App is the fully wired daemon: the supervisor plus everything Run needs
// to start/stop its network front doors and bridge events into the logger.
type App struct {
	Supervisor  *supervisor.Supervisor
	Store       storage.Store
	Bus         bus.Bus
	Logger      logging.Logger
	Config      *yamlconfig.Config
	Descriptors []process.Descriptor
	CrashCache  *crashcache.Cache

	grpcServer    *grpctransport.Server
	metricsServer *http.Server
}

// NewApp assembles the App struct from its wired components. This is the
// final provider in wire_gen.go's graph.
func NewApp(sup *supervisor.Supervisor, store storage.Store, b bus.Bus, logger logging.Logger, cfg *yamlconfig.Config, descriptors []process.Descriptor, cache *crashcache.Cache) *App {
	return &App{
		Supervisor:  sup,
		Store:       store,
		Bus:         b,
		Logger:      logger,
		Config:      cfg,
		Descriptors: descriptors,
		CrashCache:  cache,
	}
}

// Run starts the supervisor, the configured processes, the optional gRPC
// and metrics front doors, and blocks until a termination signal or ctx is
// cancelled. It is cmd/daemon's entire main-loop body.
//
// Returns:
//   - error: any fatal startup error; nil on clean shutdown.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubLog, err := attachEventLogger(ctx, a.Bus, a.Logger)
	if err != nil {
		return fmt.Errorf("bootstrap: failed to attach event logger: %w", err)
	}
	defer unsubLog()

	a.Logger.Info("", "daemon_started", "supervisor starting", map[string]any{"version": version})

	if err := a.Supervisor.Start(ctx); err != nil {
		return fmt.Errorf("bootstrap: failed to start supervisor: %w", err)
	}

	if err := a.Supervisor.Reload(ctx, a.Descriptors); err != nil {
		a.Logger.Warn("", "config_reload", "failed to register configured processes", map[string]any{"error": err.Error()})
	}
	a.autoStartConfigured(ctx)

	a.startMetricsServer()
	a.startGRPCServer()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	err = a.waitForSignal(ctx, sigCh)

	a.stopGRPCServer()
	a.stopMetricsServer()
	_ = a.Supervisor.Stop()
	if a.CrashCache != nil {
		_ = a.CrashCache.Close()
	}
	_ = a.Store.Close()
	_ = a.Bus.Close()
	_ = a.Logger.Close()

	return err
}

// autoStartConfigured starts every descriptor loaded from configuration,
// the way the teacher's supervisor starts every configured service on
// Start rather than waiting for an explicit "start" command.
func (a *App) autoStartConfigured(ctx context.Context) {
	for _, d := range a.Descriptors {
		if err := a.Supervisor.Manager().Start(ctx, d.ID); err != nil {
			a.Logger.Warn(d.Metadata.Name, "autostart_failed", "failed to auto-start configured process", map[string]any{"error": err.Error()})
		}
	}
}

func (a *App) waitForSignal(ctx context.Context, sigCh <-chan os.Signal) error {
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				descriptors, err := a.Config.Descriptors()
				if err != nil {
					a.Logger.Warn("", "config_reload", "failed to re-parse configuration", map[string]any{"error": err.Error()})
					continue
				}
				if err := a.Supervisor.Reload(ctx, descriptors); err != nil {
					a.Logger.Warn("", "config_reload", "reload failed", map[string]any{"error": err.Error()})
				}
			case syscall.SIGTERM, syscall.SIGINT:
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *App) startMetricsServer() {
	if !a.Config.Metrics.Enabled {
		return
	}
	if err := ProvideMetricsRegistry(); err != nil {
		a.Logger.Warn("", "metrics_init", "failed to register prometheus collectors", map[string]any{"error": err.Error()})
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler())
	a.metricsServer = &http.Server{Addr: a.Config.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("", "metrics_server", "metrics server stopped unexpectedly", map[string]any{"error": err.Error()})
		}
	}()
}

func (a *App) stopMetricsServer() {
	if a.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.metricsServer.Shutdown(ctx)
}

func (a *App) startGRPCServer() {
	if !a.Config.GRPC.Enabled {
		return
	}
	a.grpcServer = grpctransport.NewServer(a.Bus)
	go func() {
		if err := a.grpcServer.Serve(a.Config.GRPC.Listen); err != nil {
			a.Logger.Error("", "grpc_server", "grpc server stopped unexpectedly", map[string]any{"error": err.Error()})
		}
	}()
}

func (a *App) stopGRPCServer() {
	if a.grpcServer == nil {
		return
	}
	a.grpcServer.Stop()
}
