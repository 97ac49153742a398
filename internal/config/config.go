// Package config loads the engine host's configuration, grounded on
// pkg/config/config.go's viper defaults-then-file-then-env layering.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds everything cmd/elementaryd needs to start an engine host.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Log       LogConfig       `mapstructure:"log"`
	RelayHTTP RelayHTTPConfig `mapstructure:"relay_http"`
	Remote    RemoteConfig    `mapstructure:"remote"`
}

// EngineConfig controls the audio-thread runtime itself.
type EngineConfig struct {
	SampleRate        float64 `mapstructure:"sample_rate"`
	BlockSize         int     `mapstructure:"block_size"`
	QueueCapacity     int     `mapstructure:"queue_capacity"`
	EventCapacity     int     `mapstructure:"event_capacity"`
	EventRatePerTopic int     `mapstructure:"event_rate_per_topic"`
	TerminalGeneration int    `mapstructure:"terminal_generation"`
	SweepIntervalMs   int     `mapstructure:"sweep_interval_ms"`
}

// LogConfig controls the base slog handler.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// RelayHTTPConfig controls the websocket event bridge (C10 extension).
type RelayHTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// RemoteConfig controls the optional libp2p control-plane bridge.
type RemoteConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	ListenAddrs    []string `mapstructure:"listen_addrs"`
	BootstrapPeers []string `mapstructure:"bootstrap_peers"`
}

// Load reads configuration from configPath (or the standard search paths
// when empty), applying defaults first and environment overrides last.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("elementaryd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/elementaryd")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// no config file: defaults + env only
		} else if os.IsNotExist(err) {
			// explicit path missing: defaults + env only
		} else {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	v.SetEnvPrefix("ELEMENTARYD")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from raw bytes, useful for tests.
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.sample_rate", 44100.0)
	v.SetDefault("engine.block_size", 128)
	v.SetDefault("engine.queue_capacity", 64)
	v.SetDefault("engine.event_capacity", 256)
	v.SetDefault("engine.event_rate_per_topic", 200)
	v.SetDefault("engine.terminal_generation", 4)
	v.SetDefault("engine.sweep_interval_ms", 500)

	v.SetDefault("log.level", "info")

	v.SetDefault("relay_http.enabled", false)
	v.SetDefault("relay_http.addr", ":7070")

	v.SetDefault("remote.enabled", false)
}

// Validate checks invariants the engine's constructors assume hold.
func (c *Config) Validate() error {
	if c.Engine.SampleRate <= 0 {
		return fmt.Errorf("engine.sample_rate must be positive")
	}
	if c.Engine.BlockSize < 1 {
		return fmt.Errorf("engine.block_size must be at least 1")
	}
	if c.Engine.QueueCapacity < 1 {
		return fmt.Errorf("engine.queue_capacity must be at least 1")
	}
	if c.Engine.TerminalGeneration < 1 {
		return fmt.Errorf("engine.terminal_generation must be at least 1")
	}
	return nil
}
