// Command daemon runs the supervizio process supervisor: it loads a YAML
// configuration, wires the supervisor subsystem via internal/bootstrap,
// and blocks until a termination signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kodflow/supervizio/internal/bootstrap"
)

var buildVersion = "dev"

func main() {
	configPath := flag.String("config", "/etc/supervizio/config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("supervizio-daemon %s\n", buildVersion)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx := context.Background()

	app, err := bootstrap.InitializeApp(ctx, configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize daemon: %w", err)
	}

	return app.Run(ctx)
}
