package trust

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_KnownDomains(t *testing.T) {
	table := Default()

	tests := []struct {
		url  string
		want Tier
	}{
		{"https://www.reuters.com/world/some-story", High},
		{"https://www.cdc.gov/flu", High},
		{"http://factcheck.org/example", High},
		{"https://edition.cnn.com/2024/01/01/politics", Medium},
		{"https://timesofindia.indiatimes.com/india/x", Medium},
		{"http://example.com", Low},
		{"https://random-blog.net/post", Low},
		{"", Low},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, table.TierOf(tt.url), tt.url)
	}
}

func TestTierOf_CaseInsensitive(t *testing.T) {
	assert.Equal(t, High, Default().TierOf("HTTPS://WWW.REUTERS.COM/X"))
}

func TestTier_Score(t *testing.T) {
	assert.Equal(t, 100.0, High.Score())
	assert.Equal(t, 70.0, Medium.Score())
	assert.Equal(t, 30.0, Low.Score())
	assert.Equal(t, "MEDIUM", Medium.String())
}

func TestLoad_CustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yml")
	content := "high:\n  - Trusted.example\nmedium:\n  - okay.example\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, High, table.TierOf("https://trusted.example/a"))
	assert.Equal(t, Medium, table.TierOf("https://okay.example/a"))
	assert.Equal(t, Low, table.TierOf("https://reuters.com/a"))
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	table, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, High, table.TierOf("https://apnews.com/x"))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("high: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("other: []"))
	assert.Error(t, err)
}
