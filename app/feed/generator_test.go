package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/truthlens/app/database"
)

func TestGeneratorAnnotatesVerdicts(t *testing.T) {
	published := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	feed := database.Feed{Name: "world", Title: "World News", FeedURL: "https://example.com/rss", Language: "en"}
	trends := []database.Trend{
		{
			GUID: "https://example.com/moon", Title: "Moon made of cheese", Link: "https://example.com/moon",
			Description: "A report", PublishedAt: published, Categories: []string{"Space"},
			VerificationStatus: database.VerificationVerified, Verdict: "FALSE", IsMisinformation: true,
			Confidence: 41.5, VerificationResult: "False: no evidence supports this.",
		},
		{GUID: "pending-1", Title: "Rates & prices", PublishedAt: published, VerificationStatus: database.VerificationPending},
	}

	rss, err := NewGenerator("https://truthlens.example/", "1.2.3").Run(feed, trends)
	require.NoError(t, err)

	expected := []string{
		`<title>World News (verified)</title>`,
		`<atom:link href="https://truthlens.example/feeds/world" rel="self" type="application/rss+xml" />`,
		`<generator>TruthLens/1.2.3</generator>`,
		`<guid isPermaLink="true">https://example.com/moon</guid>`,
		`<title>[FALSE] Moon made of cheese</title>`,
		`FALSE (confidence 41.50)`,
		`<category>misinformation</category>`,
		`<guid isPermaLink="false">pending-1</guid>`,
		`<title>Rates &amp; prices</title>`,
		`<description>No description available</description>`,
		`<pubDate>Mon, 03 Jul 2023 10:00:00 +0000</pubDate>`,
	}
	for _, s := range expected {
		assert.Contains(t, rss, s)
	}
}

func TestGeneratorWithoutBaseURL(t *testing.T) {
	rss, err := NewGenerator("", "dev").Run(database.Feed{Name: "empty", FeedURL: "https://example.com/rss"}, nil)
	require.NoError(t, err)

	assert.NotContains(t, rss, "atom:link href")
	assert.Contains(t, rss, "<title>empty (verified)</title>")
	assert.NotContains(t, rss, "<item>")
}
