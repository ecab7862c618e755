// Package yaml loads the daemon's configuration: a YAML file layered with
// SUPERVIZIO_-prefixed environment variable overrides, following the
// teacher's provisr-derived config convention.
package yaml

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kodflow/supervizio/internal/domain/process"
	"github.com/kodflow/supervizio/internal/domain/shared"
)

// envPrefix is the prefix viper's AutomaticEnv binds against, e.g.
// SUPERVIZIO_STORE_DSN overrides store.dsn.
const envPrefix = "SUPERVIZIO"

// Config is the daemon's top-level configuration: where to listen, where
// to persist state, and which processes to register on startup.
type Config struct {
	Store     StoreConfig           `mapstructure:"store"`
	GRPC      GRPCConfig            `mapstructure:"grpc"`
	Metrics   MetricsConfig         `mapstructure:"metrics"`
	Log       LogConfig             `mapstructure:"log"`
	Processes []ProcessConfig `mapstructure:"processes"`
	Defaults  process.Policy  `mapstructure:"defaults"`
}

// StoreConfig configures the StateManager backend.
type StoreConfig struct {
	Kind string `mapstructure:"kind"` // sqlite, postgres, memory
	DSN  string `mapstructure:"dsn"`
}

// GRPCConfig configures the network transport.
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// LogConfig configures the daemon's own structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
	Dir    string `mapstructure:"dir"`
}

// ProcessConfig is the YAML shape of one process.Descriptor.
type ProcessConfig struct {
	ID               string            `mapstructure:"id"`
	Name             string            `mapstructure:"name"`
	Type             string            `mapstructure:"type"`
	Version          string            `mapstructure:"version"`
	ExecutablePath   string            `mapstructure:"executable_path"`
	Arguments        []string          `mapstructure:"arguments"`
	WorkingDirectory string            `mapstructure:"working_directory"`
	Environment      []string          `mapstructure:"environment"`
	AutoRestart      *bool             `mapstructure:"auto_restart"`
	RestartDelayMS   int               `mapstructure:"restart_delay_ms"`
	MaxRestarts      int               `mapstructure:"max_restart_attempts"`
	RestartCooldownS int               `mapstructure:"restart_cooldown_s"`
	CPUWarnPercent   float64           `mapstructure:"cpu_warn_pct"`
	MemWarnBytes     uint64            `mapstructure:"mem_warn_bytes"`
	Configuration    map[string]string `mapstructure:"configuration"`
}

// ToDescriptor converts one YAML process entry into a domain descriptor,
// applying defaults for any restart-policy field the entry omits.
func (p ProcessConfig) ToDescriptor(defaults process.Policy) (process.Descriptor, error) {
	if p.ID == "" {
		return process.Descriptor{}, fmt.Errorf("config: process entry missing id")
	}

	policy := defaults
	if p.AutoRestart != nil {
		policy.AutoRestart = *p.AutoRestart
	}
	if p.RestartDelayMS > 0 {
		policy.RestartDelay = shared.Duration(time.Duration(p.RestartDelayMS) * time.Millisecond)
	}
	if p.MaxRestarts > 0 {
		policy.MaxRestartAttempts = p.MaxRestarts
	}
	if p.RestartCooldownS > 0 {
		policy.RestartCooldown = shared.Duration(time.Duration(p.RestartCooldownS) * time.Second)
	}
	if p.CPUWarnPercent > 0 {
		policy.CPUWarnPercent = p.CPUWarnPercent
	}
	if p.MemWarnBytes > 0 {
		policy.MemWarnBytes = p.MemWarnBytes
	}

	return process.Descriptor{
		ID: p.ID,
		Metadata: process.Metadata{
			Name:          firstNonEmpty(p.Name, p.ID),
			Type:          p.Type,
			Version:       p.Version,
			Configuration: p.Configuration,
		},
		ExecutablePath:   p.ExecutablePath,
		Arguments:        p.Arguments,
		WorkingDirectory: p.WorkingDirectory,
		Environment:      p.Environment,
		Policy:           policy,
	}, nil
}

// Load reads path as YAML and overlays SUPERVIZIO_-prefixed environment
// variables on top, the way the teacher's provisr-derived loader layers
// viper's AutomaticEnv over a config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal %s: %w", path, err)
	}

	if cfg.Defaults == (process.Policy{}) {
		cfg.Defaults = process.DefaultPolicy()
	}

	return &cfg, nil
}

// Descriptors converts every configured process entry into a
// process.Descriptor, applying cfg.Defaults to any entry that omits a
// restart-policy field.
func (c *Config) Descriptors() ([]process.Descriptor, error) {
	out := make([]process.Descriptor, 0, len(c.Processes))
	for _, p := range c.Processes {
		d, err := p.ToDescriptor(c.Defaults)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.kind", "sqlite")
	v.SetDefault("store.dsn", "supervizio.db")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.listen", "127.0.0.1:7070")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen", "127.0.0.1:9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
