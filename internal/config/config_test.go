package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("LAVALINK_PASSWORD", "pw")

	cfg := &Config{}
	require.NoError(t, env.Parse(cfg))

	assert.Equal(t, "tok", cfg.DiscordToken)
	assert.Equal(t, "127.0.0.1", cfg.LavalinkHost)
	assert.Equal(t, 2333, cfg.LavalinkPort)
	assert.False(t, cfg.LavalinkSecure)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "online", cfg.BotStatus)
	assert.Equal(t, "music", cfg.BotActivity)
	assert.False(t, cfg.RegisterCommandsOnBot)
}

func TestConfigOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("LAVALINK_PASSWORD", "pw")
	t.Setenv("LAVALINK_HOST", "lava.internal")
	t.Setenv("LAVALINK_PORT", "443")
	t.Setenv("LAVALINK_SECURE", "true")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("REGISTER_COMMANDS_ON_BOT", "true")

	cfg := &Config{}
	require.NoError(t, env.Parse(cfg))

	assert.Equal(t, "lava.internal", cfg.LavalinkHost)
	assert.Equal(t, 443, cfg.LavalinkPort)
	assert.True(t, cfg.LavalinkSecure)
	assert.Equal(t, "id", cfg.SpotifyClientID)
	assert.True(t, cfg.RegisterCommandsOnBot)
}

func TestConfigRequiredFields(t *testing.T) {
	t.Setenv("LAVALINK_PASSWORD", "pw")
	// required only fails when the key is absent, not empty
	t.Setenv("DISCORD_TOKEN", "")
	os.Unsetenv("DISCORD_TOKEN")

	cfg := &Config{}
	err := env.Parse(cfg)
	assert.Error(t, err)
}

func TestLoadConfigCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("LAVALINK_PASSWORD", "pw")
	t.Setenv("DATA_DIR", dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.DirExists(t, dir)
}
