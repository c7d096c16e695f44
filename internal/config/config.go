// Package config loads the YAML runtime configuration of a machine host:
// logging, the realtime runner, the queue capability, snapshot persistence
// and per-timer overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Queue kinds.
const (
	QueueVec   = "vec"
	QueueArray = "array"
	QueueDisk  = "disk"
)

// Snapshot formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config is the root of the configuration file.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Runner   RunnerConfig   `yaml:"runner"`
	Queue    QueueConfig    `yaml:"queue"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Timers   TimerOverrides `yaml:"timers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RunnerConfig struct {
	TickRate         time.Duration `yaml:"tick_rate"`
	MaxEventsPerTick int           `yaml:"max_events_per_tick"`
}

type QueueConfig struct {
	Kind     string `yaml:"kind"`
	Capacity int    `yaml:"capacity"`
	Dir      string `yaml:"dir"`
}

type SnapshotConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// Default returns the configuration used for missing fields.
func Default() Config {
	return Config{
		Logging:  LoggingConfig{Level: "INFO", Format: "CONSOLE"},
		Runner:   RunnerConfig{TickRate: 100 * time.Millisecond, MaxEventsPerTick: 1000},
		Queue:    QueueConfig{Kind: QueueVec, Capacity: 64},
		Snapshot: SnapshotConfig{Format: FormatYAML},
	}
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c Config) Validate() error {
	var errs []error
	if c.Runner.TickRate <= 0 {
		errs = append(errs, errors.New("runner.tick_rate must be positive"))
	}
	if c.Runner.MaxEventsPerTick < 1 {
		errs = append(errs, errors.New("runner.max_events_per_tick must be at least 1"))
	}
	switch c.Queue.Kind {
	case QueueVec:
	case QueueArray:
		if c.Queue.Capacity < 1 {
			errs = append(errs, errors.New("queue.capacity must be at least 1 for an array queue"))
		}
	case QueueDisk:
		if c.Queue.Dir == "" {
			errs = append(errs, errors.New("queue.dir is required for a disk queue"))
		}
	default:
		errs = append(errs, fmt.Errorf("queue.kind %q is not one of vec, array, disk", c.Queue.Kind))
	}
	if c.Snapshot.Format != FormatJSON && c.Snapshot.Format != FormatYAML {
		errs = append(errs, fmt.Errorf("snapshot.format %q is not json or yaml", c.Snapshot.Format))
	}
	for id, o := range c.Timers {
		if o.Timeout != nil && *o.Timeout < 0 {
			errs = append(errs, fmt.Errorf("timers.%s.timeout is negative", id))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
