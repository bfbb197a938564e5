// Package config loads and validates the daemon's YAML configuration:
// which services to host, which of those to MITM, and the shared
// pointer-buffer size every hosted session advertises.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration file shape.
type Config struct {
	// PointerBufSize is the size, in bytes, of the shared out-pointer
	// buffer descriptor every hosted session advertises. Zero disables it.
	PointerBufSize int `yaml:"pointer_buf_size" validate:"gte=0"`

	// Services lists every name this daemon should host a port for.
	Services []ServiceEntry `yaml:"services" validate:"required,dive"`

	// Diag configures the debug/metrics HTTP server.
	Diag DiagConfig `yaml:"diag"`

	// SmAddr is the listen address for the service-manager gRPC side
	// channel (sm.ServiceManager). Empty disables it.
	SmAddr string `yaml:"sm_addr" validate:"omitempty,hostname_port"`
}

// ServiceEntry is one hosted (and optionally MITM'd) service name.
type ServiceEntry struct {
	Name        string `yaml:"name" validate:"required"`
	MaxSessions int32  `yaml:"max_sessions" validate:"gte=1"`
	Mitm        bool   `yaml:"mitm"`
}

// DiagConfig configures the diag.Server debug surface.
type DiagConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr" validate:"omitempty,hostname_port"`
	SnapshotRoot string `yaml:"snapshot_root"`
}

// Load reads, parses, and validates the config file at path. Defaults are
// applied before the YAML is unmarshaled, matching the teacher pack's
// struct-literal-then-Unmarshal pattern for optional fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{
		Diag: DiagConfig{
			Addr:         "127.0.0.1:9469",
			SnapshotRoot: "/var/lib/hipcd/snapshots",
		},
		SmAddr: "127.0.0.1:9470",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs struct validation tags over cfg.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return fmt.Errorf("config: %w", err)
		}
		var msgs []string
		for _, fe := range err.(validator.ValidationErrors) {
			msgs = append(msgs, fmt.Sprintf("field %q fails constraint %q", fe.Namespace(), fe.ActualTag()))
		}
		return fmt.Errorf("config: invalid: %v", msgs)
	}
	return nil
}
