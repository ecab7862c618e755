package dispatcher

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/kodflow/supervizio/internal/application/processmanager"
	"github.com/kodflow/supervizio/internal/domain/command"
	"github.com/kodflow/supervizio/internal/domain/process"
)

// daemonVersion is reported by the ping handler. It is overridden at build
// time in cmd/daemon via -ldflags, mirroring the teacher's version plumbing.
var daemonVersion = "0.1.0"

// RegisterCoreHandlers wires the seven handlers spec.md §4.5 requires
// (start, stop, restart, status, register, run, ping) onto d, backed by mgr.
func RegisterCoreHandlers(d *Dispatcher, mgr *processmanager.Manager) {
	d.RegisterHandler(command.KindStart, handleStart(mgr))
	d.RegisterHandler(command.KindStop, handleStop(mgr))
	d.RegisterHandler(command.KindRestart, handleRestart(mgr))
	d.RegisterHandler(command.KindStatus, handleStatus(mgr))
	d.RegisterHandler(command.KindRegister, handleRegister(mgr))
	d.RegisterHandler(command.KindRun, handleRun(mgr))
	d.RegisterHandler(command.KindPing, handlePing())
}

func requireProcessID(cmd command.Command) (string, bool) {
	id := cmd.ProcessID
	if id == "" {
		id = cmd.Params["processId"]
	}
	return id, id != ""
}

func handleStart(mgr *processmanager.Manager) command.Handler {
	return func(ctx context.Context, cmd command.Command) command.Response {
		id, ok := requireProcessID(cmd)
		if !ok {
			return command.ErrResponse(cmd.ID, "missing required parameter: processId")
		}
		if err := mgr.Start(ctx, id); err != nil {
			return command.ErrResponse(cmd.ID, err.Error())
		}
		return command.OKResponse(cmd.ID, map[string]any{"processId": id})
	}
}

func handleStop(mgr *processmanager.Manager) command.Handler {
	return func(ctx context.Context, cmd command.Command) command.Response {
		id, ok := requireProcessID(cmd)
		if !ok {
			return command.ErrResponse(cmd.ID, "missing required parameter: processId")
		}
		if err := mgr.Stop(ctx, id); err != nil {
			return command.ErrResponse(cmd.ID, err.Error())
		}
		return command.OKResponse(cmd.ID, map[string]any{"processId": id})
	}
}

func handleRestart(mgr *processmanager.Manager) command.Handler {
	return func(ctx context.Context, cmd command.Command) command.Response {
		id, ok := requireProcessID(cmd)
		if !ok {
			return command.ErrResponse(cmd.ID, "missing required parameter: processId")
		}
		if err := mgr.Restart(ctx, id); err != nil {
			return command.ErrResponse(cmd.ID, err.Error())
		}
		return command.OKResponse(cmd.ID, map[string]any{"processId": id})
	}
}

func handleStatus(mgr *processmanager.Manager) command.Handler {
	return func(_ context.Context, cmd command.Command) command.Response {
		id, ok := requireProcessID(cmd)
		if !ok {
			data := make(map[string]any)
			for pid, state := range mgr.GetAll() {
				data[pid] = statusPayload(state)
			}
			return command.OKResponse(cmd.ID, data)
		}

		_, state, err := mgr.Get(id)
		if err != nil {
			return command.ErrResponse(cmd.ID, err.Error())
		}
		return command.OKResponse(cmd.ID, statusPayload(state))
	}
}

func statusPayload(state process.RuntimeState) map[string]any {
	return map[string]any{
		"status":       state.Status.String(),
		"pid":          state.PID,
		"restartCount": state.RestartCount,
		"startTime":    state.StartTime,
	}
}

func handleRegister(mgr *processmanager.Manager) command.Handler {
	return func(ctx context.Context, cmd command.Command) command.Response {
		d, err := descriptorFromParams(cmd)
		if err != nil {
			return command.ErrResponse(cmd.ID, err.Error())
		}

		force, _ := strconv.ParseBool(cmd.Params["force"])
		if err := mgr.Register(ctx, d, force); err != nil {
			return command.ErrResponse(cmd.ID, err.Error())
		}
		return command.OKResponse(cmd.ID, map[string]any{"processId": d.ID})
	}
}

func handleRun(mgr *processmanager.Manager) command.Handler {
	register := handleRegister(mgr)
	return func(ctx context.Context, cmd command.Command) command.Response {
		if resp := register(ctx, cmd); !resp.OK {
			return resp
		}

		id, _ := requireProcessID(cmd)
		if id == "" {
			id = cmd.Params["id"]
		}
		if err := mgr.Start(ctx, id); err != nil {
			return command.ErrResponse(cmd.ID, err.Error())
		}
		return command.OKResponse(cmd.ID, map[string]any{"processId": id})
	}
}

func handlePing() command.Handler {
	return func(_ context.Context, cmd command.Command) command.Response {
		return command.OKResponse(cmd.ID, map[string]any{
			"status":    process.StatusRunning.String(),
			"version":   daemonVersion,
			"timestamp": time.Now().UTC(),
		})
	}
}

func descriptorFromParams(cmd command.Command) (process.Descriptor, error) {
	id := cmd.ProcessID
	if id == "" {
		id = cmd.Params["id"]
	}
	if id == "" || cmd.Params["executablePath"] == "" {
		return process.Descriptor{}, errMissingDescriptorFields
	}

	var args []string
	if raw := cmd.Params["arguments"]; raw != "" {
		args = strings.Split(raw, ",")
	}

	d := process.Descriptor{
		ID: id,
		Metadata: process.Metadata{
			Name:    firstNonEmpty(cmd.Params["name"], id),
			Type:    cmd.Params["type"],
			Version: cmd.Params["version"],
		},
		ExecutablePath:   cmd.Params["executablePath"],
		Arguments:        args,
		WorkingDirectory: cmd.Params["workingDirectory"],
		Policy:           process.DefaultPolicy(),
	}
	return d, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
