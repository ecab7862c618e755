package bootstrap

import (
	"context"

	"github.com/kodflow/supervizio/internal/domain/bus"
	"github.com/kodflow/supervizio/internal/domain/logging"
	"github.com/kodflow/supervizio/internal/domain/process"
)

// attachEventLogger subscribes to every process event published on the bus
// and mirrors it into logger, the way the teacher's SetEventHandler bridges
// process events into its daemon logger, but driven by the bus instead of a
// direct callback since every process.Event already travels that way here.
//
// Returns:
//   - func(): unsubscribes the bridge; call during shutdown.
func attachEventLogger(ctx context.Context, b bus.Bus, logger logging.Logger) (func(), error) {
	return b.Subscribe(ctx, "events:#", func(_ context.Context, msg bus.Message) {
		ev, ok := msg.Payload.(process.Event)
		if !ok {
			return
		}
		logEvent(logger, ev)
	})
}

func logEvent(logger logging.Logger, ev process.Event) {
	meta := map[string]any{"status": ev.Status.String()}
	if ev.PID > 0 {
		meta["pid"] = ev.PID
	}
	if ev.Message != "" {
		meta["error"] = ev.Message
	}

	switch ev.Type {
	case process.EventCrashed:
		meta["exit_code"] = ev.ExitCode
		logger.Error(ev.Name, string(ev.Type), "process crashed", meta)
	case process.EventHealthWarn:
		logger.Warn(ev.Name, string(ev.Type), "resource usage exceeds warning threshold", meta)
	case process.EventRestarted:
		logger.Info(ev.Name, string(ev.Type), "process restarted", meta)
	default:
		logger.Info(ev.Name, string(ev.Type), "process "+string(ev.Type), meta)
	}
}
