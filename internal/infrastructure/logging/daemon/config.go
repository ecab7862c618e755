package daemon

// WriterConfig describes one configured log sink: its type, minimum level,
// and type-specific settings.
type WriterConfig struct {
	Type  string           `yaml:"type"`
	Level string           `yaml:"level"`
	File  FileWriterConfig `yaml:"file"`
	JSON  JSONWriterConfig `yaml:"json"`
}

// FileWriterConfig configures a plain-text rotating file sink.
type FileWriterConfig struct {
	Path     string         `yaml:"path"`
	Rotation RotationConfig `yaml:"rotation"`
}

// JSONWriterConfig configures a structured JSON file sink.
type JSONWriterConfig struct {
	Path string `yaml:"path"`
}

// Logging is the daemon-wide logging configuration: a list of writers,
// each independently leveled.
type Logging struct {
	Writers []WriterConfig `yaml:"writers"`
}

// DefaultLogging returns the configuration applied when none is supplied:
// a single console writer at info level.
func DefaultLogging() Logging {
	return Logging{Writers: []WriterConfig{{Type: writerTypeConsole, Level: "info"}}}
}
