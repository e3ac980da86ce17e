package execkit

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"gopkg.in/yaml.v3"

	"github.com/execkit/execkit/service/executor"
	"github.com/execkit/execkit/service/resource"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from YAML or JSON; zero-value nested fields inherit their
// package defaults.
type Config struct {
	Executor  executor.Config `json:"executor" yaml:"executor"`
	Resources resource.Limits `json:"resources" yaml:"resources"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Executor:  executor.DefaultConfig(),
		Resources: resource.DefaultLimits(),
	}
}

// Validate returns an aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Executor.Validate(); err != nil {
		return err
	}
	return c.Resources.Validate()
}

// LoadConfig reads a YAML config document from the supplied URL (file, mem,
// embed or any other scheme the afs service understands). Fields absent from
// the document keep their defaults.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", URL, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
