package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromReader("yaml", []byte(``))
	require.NoError(t, err)
	assert.Equal(t, 44100.0, cfg.Engine.SampleRate)
	assert.Equal(t, 128, cfg.Engine.BlockSize)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	yaml := []byte(`
engine:
  sample_rate: 48000
  block_size: 256
log:
  level: debug
remote:
  enabled: true
  listen_addrs:
    - /ip4/0.0.0.0/tcp/4001
`)
	cfg, err := LoadFromReader("yaml", yaml)
	require.NoError(t, err)
	assert.Equal(t, 48000.0, cfg.Engine.SampleRate)
	assert.Equal(t, 256, cfg.Engine.BlockSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Remote.Enabled)
	assert.Len(t, cfg.Remote.ListenAddrs, 1)
}

func TestValidateRejectsBadEngineConfig(t *testing.T) {
	cfg := &Config{Engine: EngineConfig{SampleRate: 0, BlockSize: 1, QueueCapacity: 1, TerminalGeneration: 1}}
	assert.Error(t, cfg.Validate(), "expected validation error for zero sample rate")

	cfg.Engine.SampleRate = 44100
	cfg.Engine.BlockSize = 0
	assert.Error(t, cfg.Validate(), "expected validation error for zero block size")
}
