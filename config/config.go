// Package config loads channelctl and bridge configuration from TOML.
package config

import (
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/platform-channels/errors"
	"github.com/wippyai/platform-channels/internal/logging"
	"github.com/wippyai/platform-channels/messenger"
)

// Config is the root of a channels.toml file.
type Config struct {
	Messenger MessengerConfig `toml:"messenger"`
	TaskQueue TaskQueueConfig `toml:"task_queue"`
	Log       LogConfig       `toml:"log"`
	Bridge    BridgeConfig    `toml:"bridge"`

	// Path is the file the configuration was loaded from (set at load time).
	Path string `toml:"-"`
}

// MessengerConfig configures inbound buffering.
type MessengerConfig struct {
	Buffering             bool `toml:"buffering"`
	MaxBufferedPerChannel int  `toml:"max_buffered_per_channel"`
}

// TaskQueueConfig configures background queues created for handlers.
type TaskQueueConfig struct {
	Serial  bool `toml:"serial"`
	Workers int  `toml:"workers"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level       string `toml:"level"`
	File        string `toml:"file"`
	MaxSizeMB   int    `toml:"max_size_mb"`
	MaxBackups  int    `toml:"max_backups"`
	Development bool   `toml:"development"`
}

// BridgeConfig configures the WebSocket bridge endpoint.
type BridgeConfig struct {
	Listen string `toml:"listen"`
	Path   string `toml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Messenger: MessengerConfig{
			Buffering:             true,
			MaxBufferedPerChannel: messenger.DefaultMaxBuffered,
		},
		TaskQueue: TaskQueueConfig{
			Serial:  true,
			Workers: 4,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Bridge: BridgeConfig{
			Listen: "127.0.0.1:8765",
			Path:   "/channels",
		},
	}
}

// Load reads path over the defaults and validates the result. Keys the
// configuration does not know are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.InvalidInput(errors.PhaseConfig, "unknown keys: "+strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Messenger.MaxBufferedPerChannel < 1 {
		return invalid("messenger.max_buffered_per_channel", c.Messenger.MaxBufferedPerChannel, "must be at least 1")
	}
	if c.TaskQueue.Workers < 1 {
		return invalid("task_queue.workers", c.TaskQueue.Workers, "must be at least 1")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", c.Log.Level, err.Error())
	}
	if c.Log.MaxSizeMB < 0 {
		return invalid("log.max_size_mb", c.Log.MaxSizeMB, "must not be negative")
	}
	if c.Log.MaxBackups < 0 {
		return invalid("log.max_backups", c.Log.MaxBackups, "must not be negative")
	}
	if _, _, err := net.SplitHostPort(c.Bridge.Listen); err != nil {
		return invalid("bridge.listen", c.Bridge.Listen, err.Error())
	}
	if !strings.HasPrefix(c.Bridge.Path, "/") {
		return invalid("bridge.path", c.Bridge.Path, "must start with /")
	}
	return nil
}

func invalid(key string, value any, reason string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(key).
		Value(value).
		Detail("%s %s", key, reason).
		Build()
}

// MessengerOptions returns the messenger options the configuration selects.
func (c *Config) MessengerOptions() []messenger.Option {
	return []messenger.Option{
		messenger.WithBuffering(c.Messenger.Buffering),
		messenger.WithMaxBuffered(c.Messenger.MaxBufferedPerChannel),
	}
}

// TaskQueueOptions returns the options for handler task queues.
func (c *Config) TaskQueueOptions() messenger.TaskQueueOptions {
	return messenger.TaskQueueOptions{
		Serial:  c.TaskQueue.Serial,
		Workers: c.TaskQueue.Workers,
	}
}

// LoggingOptions returns the logger settings.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:       c.Log.Level,
		File:        c.Log.File,
		MaxSizeMB:   c.Log.MaxSizeMB,
		MaxBackups:  c.Log.MaxBackups,
		Development: c.Log.Development,
	}
}

// Write encodes the configuration as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
