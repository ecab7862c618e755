// Command supervizioctl is the thin CLI front-end described by spec.md §6:
// every subcommand maps one-to-one to a command_type, submitted to the
// daemon over gRPC and rendered as JSON. All state lives in the daemon;
// this binary does no I/O beyond the network call and stdout/stderr.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kodflow/supervizio/internal/domain/command"
	grpctransport "github.com/kodflow/supervizio/internal/infrastructure/transport/grpc"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	kind := command.Kind(strings.ToLower(args[0]))
	fs := flag.NewFlagSet(string(kind), flag.ContinueOnError)
	addr := fs.String("addr", "127.0.0.1:7070", "daemon gRPC address")
	processID := fs.String("process-id", "", "target process id")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	params := stringSliceFlag(fs, "param", "key=value, repeatable")
	descriptor := registerFlags(fs)

	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	cmd := command.Command{
		ID:        newCommandID(),
		Kind:      kind,
		ProcessID: *processID,
		Params:    paramsFromFlags(*params, kind, descriptor),
		Timestamp: time.Now().UTC(),
	}

	resp, err := dispatch(*addr, *timeout, cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	render(resp)
	if !resp.OK {
		return 1
	}
	return 0
}

// newCommandID returns a random 16-byte hex token identifying one CLI
// invocation's Command, with no collision-resistance requirements beyond
// correlating a request with its Response.
func newCommandID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func dispatch(addr string, timeout time.Duration, cmd command.Command) (command.Response, error) {
	client, err := grpctransport.Dial(addr)
	if err != nil {
		return command.Response{}, err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return client.Dispatch(ctx, cmd)
}

func render(resp command.Response) {
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Println(resp)
		return
	}
	fmt.Println(string(out))
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: supervizioctl <start|stop|restart|status|register|run|ping> [flags]

  -addr string        daemon gRPC address (default "127.0.0.1:7070")
  -process-id string  target process id
  -timeout duration   request timeout (default 5s)
  -param key=value    extra command parameter, repeatable
  -exec, -arg, -workdir, -name, -type, -version  descriptor fields for register/run`)
}

// registerDescriptorFlags holds the register/run-specific flags; kept as a
// struct so paramsFromFlags can fold them into Command.Params without a
// long positional argument list.
type registerDescriptorFlags struct {
	exec    *string
	args    *[]string
	workdir *string
	name    *string
	typ     *string
	version *string
}

func registerFlags(fs *flag.FlagSet) registerDescriptorFlags {
	return registerDescriptorFlags{
		exec:    fs.String("exec", "", "executable path (register/run)"),
		args:    stringSliceFlag(fs, "arg", "argument, repeatable (register/run)"),
		workdir: fs.String("workdir", "", "working directory (register/run)"),
		name:    fs.String("name", "", "display name (register/run)"),
		typ:     fs.String("type", "", "process type (register/run)"),
		version: fs.String("version", "", "process version (register/run)"),
	}
}

func paramsFromFlags(rawParams []string, kind command.Kind, d registerDescriptorFlags) map[string]string {
	params := make(map[string]string, len(rawParams)+6)
	for _, p := range rawParams {
		k, v, ok := strings.Cut(p, "=")
		if ok {
			params[k] = v
		}
	}

	if kind == command.KindRegister || kind == command.KindRun {
		if *d.exec != "" {
			params["executablePath"] = *d.exec
		}
		if len(*d.args) > 0 {
			params["arguments"] = strings.Join(*d.args, ",")
		}
		if *d.workdir != "" {
			params["workingDirectory"] = *d.workdir
		}
		if *d.name != "" {
			params["name"] = *d.name
		}
		if *d.typ != "" {
			params["type"] = *d.typ
		}
		if *d.version != "" {
			params["version"] = *d.version
		}
	}

	return params
}

// stringSliceFlag registers a repeatable string flag named name and
// returns a pointer to its accumulated values.
func stringSliceFlag(fs *flag.FlagSet, name, usage string) *[]string {
	values := new([]string)
	fs.Var((*stringSlice)(values), name, usage)
	return values
}

type stringSlice []string

func (s *stringSlice) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}
