package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/persistence"
)

var validate = validator.New()

// Config describes one proofreading session.
type Config struct {
	// GraphPath is the region graph (JSON). Exports overwrite it so that
	// the graph, the state document and the journal stay consistent.
	GraphPath string `yaml:"graph_path" validate:"required"`
	// StatePath is the persisted state document. A missing file starts a
	// fresh session.
	StatePath string `yaml:"state_path"`

	JournalPath          string        `yaml:"journal_path"`
	JournalSync          string        `yaml:"journal_sync" validate:"oneof=always interval never"`
	JournalFlushInterval time.Duration `yaml:"journal_flush_interval" validate:"gte=0"`

	// Strategy defaults, used where the state document is silent.
	Mode       string       `yaml:"mode" validate:"omitempty,oneof=nodesize synapse orphan prob"`
	IgnoreSize *float64     `yaml:"ignore_size" validate:"omitempty,gte=0"`
	Depth      int          `yaml:"depth" validate:"gte=0"`
	Range      editor.Range `yaml:"range"`

	Seed        uint64 `yaml:"seed"`
	QAThreshold uint64 `yaml:"qa_threshold"`

	HTTP HTTPConfig `yaml:"http"`
	Log  LogConfig  `yaml:"log"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required"`
	// AuthToken, when set, is required as a bearer token on /v1 and /mcp.
	AuthToken string `yaml:"auth_token"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns the baseline every config file is layered on.
func DefaultConfig() Config {
	return Config{
		JournalSync:          string(persistence.SyncInterval),
		JournalFlushInterval: persistence.DefaultFlushInterval,
		Mode:                 "nodesize",
		Range:                editor.DefaultRange,
		Seed:                 1,
		QAThreshold:          25000,
		HTTP:                 HTTPConfig{Addr: ":9191"},
		Log:                  LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads the YAML configuration file using strict parsing and
// validates the result.
func LoadConfig(path string) (Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ReadConfig layers the YAML file at path over DefaultConfig without
// validating, so callers can apply overrides first. An empty path yields
// the defaults.
func ReadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	// 1. Open File
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open session config: %w", err)
	}
	defer file.Close()

	// 2. Setup Strict Decoder
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	// 3. Decode
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("YAML syntax error in session config: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}
	if c.Range.Lower > c.Range.Upper {
		return fmt.Errorf("invalid session config: range lower %g above upper %g", c.Range.Lower, c.Range.Upper)
	}
	return nil
}
