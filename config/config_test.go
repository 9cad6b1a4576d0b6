package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

const minimal = `
telegram_token: "test-token"
nexon_api_key: "test-key"
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "https://open.api.nexon.com/maplestory/v1", cfg.NexonBaseURL)
	assert.Equal(t, "Asia/Seoul", cfg.Timezone)
	assert.Equal(t, 10, cfg.FetchTimeoutSecs)
	assert.Equal(t, 5.0, cfg.RequestsPerSecond)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.Equal(t, 256, cfg.OCIDCacheSize)
	assert.Equal(t, 60, cfg.OCIDCacheTTLMins)
	assert.Equal(t, "friday", cfg.AnnounceWeekday)
	assert.Equal(t, "10:01", cfg.AnnounceTime)
	assert.Equal(t, "https://maplestory.nexon.com/News/Event/Ongoing", cfg.EventListURL)
	assert.Equal(t, "https://maplescouter.com/info?name=", cfg.ScouterBaseURL)
	assert.Equal(t, "./maple-bot.db", cfg.DBPath)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
	assert.Equal(t, time.Hour, cfg.OCIDCacheTTL())
}

func TestLoadOverrideDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
telegram_token: "test-token"
nexon_api_key: "test-key"
nexon_base_url: "http://localhost:9000"
timezone: "UTC"
fetch_timeout_secs: 30
requests_per_second: 2.5
fetch_concurrency: 2
ocid_cache_size: 10
ocid_cache_ttl_mins: 5
announce_weekday: "sun"
announce_time: "18:30"
event_list_url: "http://localhost/events"
scouter_base_url: "http://localhost/scouter?name="
db_path: "/data/bot.db"
metrics_addr: ":9090"
log_level: "debug"
`))
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.TelegramToken)
	assert.Equal(t, "test-key", cfg.NexonAPIKey)
	assert.Equal(t, "http://localhost:9000", cfg.NexonBaseURL)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, 30, cfg.FetchTimeoutSecs)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
	assert.Equal(t, 2, cfg.FetchConcurrency)
	assert.Equal(t, 10, cfg.OCIDCacheSize)
	assert.Equal(t, 5, cfg.OCIDCacheTTLMins)
	assert.Equal(t, "sun", cfg.AnnounceWeekday)
	assert.Equal(t, "18:30", cfg.AnnounceTime)
	assert.Equal(t, "http://localhost/events", cfg.EventListURL)
	assert.Equal(t, "http://localhost/scouter?name=", cfg.ScouterBaseURL)
	assert.Equal(t, "/data/bot.db", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingTelegramToken(t *testing.T) {
	_, err := Load(writeConfig(t, `nexon_api_key: "test-key"`))
	assert.ErrorContains(t, err, "telegram_token is required")
}

func TestLoadForRenderWithoutTelegramToken(t *testing.T) {
	cfg, err := LoadForRender(writeConfig(t, `nexon_api_key: "test-key"`))
	require.NoError(t, err)
	assert.Empty(t, cfg.TelegramToken)
	assert.Equal(t, "test-key", cfg.NexonAPIKey)

	_, err = LoadForRender(writeConfig(t, `timezone: "UTC"`))
	assert.ErrorContains(t, err, "nexon_api_key is required")
}

func TestLoadMissingNexonAPIKey(t *testing.T) {
	_, err := Load(writeConfig(t, `telegram_token: "test-token"`))
	assert.ErrorContains(t, err, "nexon_api_key is required")
}

func TestLoadInvalidAnnounceTime(t *testing.T) {
	tests := []struct {
		name string
		time string
	}{
		{"invalid format", "9:00"},
		{"invalid hours", "25:00"},
		{"invalid minutes", "09:60"},
		{"text", "nine"},
		{"missing colon", "0900"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, minimal+`announce_time: "`+tt.time+`"`))
			assert.Error(t, err)
		})
	}
}

func TestLoadValidAnnounceTimes(t *testing.T) {
	for _, tt := range []string{"00:00", "09:00", "12:30", "23:59"} {
		t.Run(tt, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, minimal+`announce_time: "`+tt+`"`))
			require.NoError(t, err)
			assert.Equal(t, tt, cfg.AnnounceTime)
		})
	}
}

func TestLoadAnnounceWeekday(t *testing.T) {
	for _, day := range []string{"Monday", "fri", "SATURDAY"} {
		_, err := Load(writeConfig(t, minimal+`announce_weekday: "`+day+`"`))
		assert.NoError(t, err, day)
	}

	_, err := Load(writeConfig(t, minimal+`announce_weekday: "someday"`))
	assert.ErrorContains(t, err, "announce_weekday")
}

func TestLoadInvalidTimezone(t *testing.T) {
	_, err := Load(writeConfig(t, minimal+`timezone: "Invalid/Zone"`))
	assert.Error(t, err)
}

func TestLoadInvalidLogLevel(t *testing.T) {
	_, err := Load(writeConfig(t, minimal+`log_level: "verbose"`))
	assert.ErrorContains(t, err, "log_level")
}

func TestLoadNegativeSettings(t *testing.T) {
	_, err := Load(writeConfig(t, minimal+`fetch_concurrency: -1`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, minimal+`requests_per_second: -2`))
	assert.Error(t, err)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, `invalid: yaml: content:`))
	assert.Error(t, err)
}

func TestEnvironmentVariableOverride(t *testing.T) {
	t.Setenv("MAPLE_BOT_DB", "/override/path.db")
	t.Setenv("MAPLE_BOT_METRICS_ADDR", "127.0.0.1:9100")
	t.Setenv("MAPLE_BOT_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, minimal+`db_path: "/original/path.db"`))
	require.NoError(t, err)

	assert.Equal(t, "/override/path.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestSecretsFromEnvironment(t *testing.T) {
	t.Setenv("MAPLE_BOT_TELEGRAM_TOKEN", "env-token")
	t.Setenv("MAPLE_BOT_NEXON_API_KEY", "env-key")

	cfg, err := Load(writeConfig(t, `timezone: "UTC"`))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.TelegramToken)
	assert.Equal(t, "env-key", cfg.NexonAPIKey)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("MAPLE_BOT_CONFIG", "")
	assert.Equal(t, "./config.yaml", GetConfigPath())

	t.Setenv("MAPLE_BOT_CONFIG", "/custom/config.yaml")
	assert.Equal(t, "/custom/config.yaml", GetConfigPath())
}
