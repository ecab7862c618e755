// Package bootstrap wires the supervisor's production adapters together,
// isolating dependency construction from cmd/daemon's minimal main.go, the
// way the teacher's own internal/bootstrap separates Wire-built providers
// from the entry point.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kodflow/supervizio/internal/application/dispatcher"
	"github.com/kodflow/supervizio/internal/application/health"
	"github.com/kodflow/supervizio/internal/application/processmanager"
	"github.com/kodflow/supervizio/internal/application/supervisor"
	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/logging"
	"github.com/kodflow/supervizio/internal/domain/process"
	"github.com/kodflow/supervizio/internal/domain/storage"
	busin "github.com/kodflow/supervizio/internal/infrastructure/bus/inproc"
	yamlconfig "github.com/kodflow/supervizio/internal/infrastructure/config/yaml"
	"github.com/kodflow/supervizio/internal/infrastructure/executor"
	daemonlogger "github.com/kodflow/supervizio/internal/infrastructure/logging/daemon"
	"github.com/kodflow/supervizio/internal/infrastructure/metrics/gopsutil"
	"github.com/kodflow/supervizio/internal/infrastructure/metrics/prom"
	"github.com/kodflow/supervizio/internal/infrastructure/persistence/crashcache"
	"github.com/kodflow/supervizio/internal/infrastructure/storage/postgres"
	"github.com/kodflow/supervizio/internal/infrastructure/storage/sqlite"
)

// ProvideBus constructs the in-process Bus adapter. It is the only Bus
// implementation the daemon wires today; see DESIGN.md for why no
// distributed adapter is provided.
//
// Returns:
//   - bus.Bus: a ready in-process bus.
func ProvideBus() bus.Bus {
	return busin.New()
}

// ProvideStore opens the configured storage backend, dispatching on
// cfg.Store.Kind the way spec.md §6's DatabaseKind tag is meant to be used.
//
// Params:
//   - ctx: cancellation context for the connect/schema-init call.
//   - cfg: the loaded daemon configuration.
//
// Returns:
//   - storage.Store: the opened, schema-ready store.
//   - error: any connection or schema error, or an unknown-kind error.
func ProvideStore(ctx context.Context, cfg *yamlconfig.Config) (storage.Store, error) {
	switch cfg.Store.Kind {
	case "", "sqlite":
		return sqlite.New(ctx, cfg.Store.DSN)
	case "memory", "in_memory":
		return sqlite.New(ctx, ":memory:")
	case "postgres", "postgresql":
		return postgres.New(ctx, cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("bootstrap: unknown store kind %q", cfg.Store.Kind)
	}
}

// ProvideLogger builds the daemon's structured logger from cfg.Log,
// falling back to a default console logger if construction fails, the way
// the teacher's initializeLogger degrades rather than aborting startup.
//
// Params:
//   - cfg: the loaded daemon configuration.
//
// Returns:
//   - logging.Logger: a ready logger, never nil.
func ProvideLogger(cfg *yamlconfig.Config) logging.Logger {
	daemonCfg := daemonlogger.Logging{Writers: []daemonlogger.WriterConfig{
		{Type: "console", Level: cfg.Log.Level},
	}}
	if cfg.Log.Format == "json" && cfg.Log.Dir != "" {
		daemonCfg.Writers = append(daemonCfg.Writers, daemonlogger.WriterConfig{
			Type:  "json",
			Level: cfg.Log.Level,
			JSON:  daemonlogger.JSONWriterConfig{Path: "daemon.log"},
		})
	}

	logger, err := daemonlogger.BuildLogger(daemonCfg, cfg.Log.Dir)
	if err != nil {
		return daemonlogger.DefaultLogger()
	}
	return logger
}

// ProvideExecutorFactory returns the constructor ProcessManager calls to
// build a fresh process.Executor for each handle.
//
// Returns:
//   - func() process.Executor: always backed by the OS-process executor.
func ProvideExecutorFactory() func() process.Executor {
	return func() process.Executor { return executor.New() }
}

// ProvideMetricsRegistry registers the ambient Prometheus collectors
// against the default registerer, which the metrics HTTP handler serves.
//
// Returns:
//   - error: any registration error other than AlreadyRegistered.
func ProvideMetricsRegistry() error {
	return prom.Register(prometheus.DefaultRegisterer)
}

// ProvideCrashCache opens the bbolt-backed output/last-error cache
// alongside the relational store, per SPEC_FULL.md §3's two-durability-tier
// design: the cache is keyed relative to the relational store's own DSN so
// the two files sit next to each other without a separate config key.
//
// Params:
//   - cfg: the loaded daemon configuration.
//
// Returns:
//   - *crashcache.Cache: a ready cache.
//   - error: any error opening the underlying bbolt file.
func ProvideCrashCache(cfg *yamlconfig.Config) (*crashcache.Cache, error) {
	return crashcache.New(crashcache.PathFor(cfg.Store.DSN))
}

// ProvideHealthMonitor constructs the HealthMonitor with the gopsutil
// sampler, spec.md §4.3's default 30s check interval.
//
// Params:
//   - store: the shared state store.
//   - b: the shared bus.
//
// Returns:
//   - *health.Monitor: a not-yet-started monitor.
func ProvideHealthMonitor(store storage.Store, b bus.Bus) *health.Monitor {
	return health.New(gopsutil.New(), store, b, 0)
}

// ProvideProcessManager constructs the Manager, wiring the HealthMonitor as
// its HealthRegistrar per spec.md §4.2, and the crash cache as the output
// ring buffers' durable backstop.
//
// Params:
//   - store: the shared state store.
//   - b: the shared bus.
//   - monitor: the HealthMonitor, registered/unregistered as handles come
//     and go.
//   - cache: the crash-recovery cache; may be nil, in which case handles
//     run with in-memory-only ring buffers.
//
// Returns:
//   - *processmanager.Manager: a not-yet-initialized manager.
func ProvideProcessManager(store storage.Store, b bus.Bus, monitor *health.Monitor, cache *crashcache.Cache) *processmanager.Manager {
	mgr := processmanager.New(store, b, monitor, ProvideExecutorFactory())
	if cache != nil {
		mgr.SetOutputSink(cache)
	}
	return mgr
}

// ProvideDispatcher constructs the Dispatcher with spec.md §4.5's seven
// core handlers registered against mgr.
//
// Params:
//   - b: the shared bus.
//   - mgr: the process registry the handlers act on.
//
// Returns:
//   - *dispatcher.Dispatcher: a not-yet-started dispatcher.
func ProvideDispatcher(b bus.Bus, mgr *processmanager.Manager) *dispatcher.Dispatcher {
	d := dispatcher.New(b)
	dispatcher.RegisterCoreHandlers(d, mgr)
	return d
}

// ProvideSupervisor assembles the daemon's composition root.
//
// Returns:
//   - *supervisor.Supervisor: ready to Start.
func ProvideSupervisor(b bus.Bus, store storage.Store, mgr *processmanager.Manager, monitor *health.Monitor, d *dispatcher.Dispatcher) *supervisor.Supervisor {
	return supervisor.New(b, store, mgr, monitor, d)
}
