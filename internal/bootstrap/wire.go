//go:build wireinject

package bootstrap

import (
	"context"

	"github.com/google/wire"

	"github.com/kodflow/supervizio/internal/application/dispatcher"
	"github.com/kodflow/supervizio/internal/application/health"
	"github.com/kodflow/supervizio/internal/application/processmanager"
	"github.com/kodflow/supervizio/internal/application/supervisor"
	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/storage"
	yamlconfig "github.com/kodflow/supervizio/internal/infrastructure/config/yaml"
)

// InitializeApp is the Wire injector: `wire internal/bootstrap` regenerates
// wire_gen.go from this graph. It is never compiled directly (the
// wireinject build tag excludes it); wire_gen.go carries the hand-verified
// equivalent the build actually uses.
//
// Params:
//   - ctx: cancellation context for store/bus construction.
//   - configPath: path to the daemon's YAML configuration file.
//
// Returns:
//   - *App: the fully wired application.
//   - error: any error constructing a dependency.
func InitializeApp(ctx context.Context, configPath string) (*App, error) {
	wire.Build(
		yamlconfig.Load,
		wire.Bind(new(*yamlconfig.Config), new(*yamlconfig.Config)),

		ProvideLogger,
		ProvideBus,
		ProvideStore,
		ProvideCrashCache,
		wire.Bind(new(storage.Store), new(storage.Store)),
		wire.Bind(new(bus.Bus), new(bus.Bus)),

		ProvideHealthMonitor,
		wire.Bind(new(processmanager.HealthRegistrar), new(*health.Monitor)),

		ProvideProcessManager,
		ProvideDispatcher,
		wire.Bind(new(*dispatcher.Dispatcher), new(*dispatcher.Dispatcher)),

		ProvideSupervisor,
		wire.Bind(new(*supervisor.Supervisor), new(*supervisor.Supervisor)),

		NewApp,
	)
	return nil, nil
}
