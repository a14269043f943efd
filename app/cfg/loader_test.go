package cfg

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	assert.NotEmpty(t, GetVersion())
}

func TestParseDefaults(t *testing.T) {
	t.Setenv("MODEL_API_KEY", "secret")

	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "secret", cfg.ModelAPIKey)
	assert.Equal(t, 60*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 50, cfg.MinTextLength)
	assert.EqualValues(t, 10<<20, cfg.MaxUploadSize)
	assert.Empty(t, cfg.FactCheckFeeds)
	assert.NotEmpty(t, cfg.Version)
}

func TestParseFlagsAndLists(t *testing.T) {
	t.Setenv("MODEL_API_KEY", "secret")
	t.Setenv("FACT_CHECK_FEEDS", "https://a.example/rss,https://b.example/rss")

	cfg, err := Parse([]string{"--port", "9000", "--debug", "--worker-count", "2"})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, []string{"https://a.example/rss", "https://b.example/rss"}, cfg.FactCheckFeeds)
}

func TestParseRequiresModelKey(t *testing.T) {
	t.Setenv("MODEL_API_KEY", "")
	os.Unsetenv("MODEL_API_KEY")

	_, err := Parse(nil)
	assert.Error(t, err)
}

func TestParseRejectsZeroWorkers(t *testing.T) {
	t.Setenv("MODEL_API_KEY", "secret")

	_, err := Parse([]string{"--worker-count", "0"})
	assert.Error(t, err)
}
