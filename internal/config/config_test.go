package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_RequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrDiscordTokenNotSet)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.Prefix)
	assert.Equal(t, "cache", cfg.CacheDir)
	assert.Equal(t, 30*time.Minute, cfg.StreamTTL)
	assert.Equal(t, 15, cfg.BatchSize)
	assert.Equal(t, 3, cfg.LowWatermark)
	assert.Equal(t, 4, cfg.BatchConcurrency)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("COMMAND_PREFIX", "?")
	t.Setenv("CACHE_STREAM_TTL", "15m")
	t.Setenv("PLAYLIST_BATCH_SIZE", "25")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.Prefix)
	assert.Equal(t, 15*time.Minute, cfg.StreamTTL)
	assert.Equal(t, 25, cfg.BatchSize)
}

func TestLoadConfig_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("PLAYLIST_BATCH_SIZE", "not a number")
	t.Setenv("CACHE_STREAM_TTL", "-5m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.BatchSize)
	assert.Equal(t, 30*time.Minute, cfg.StreamTTL)
}
