package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>World News</title>
    <link>https://example.com</link>
    <description>&lt;p&gt;Top &lt;b&gt;stories&lt;/b&gt;&lt;/p&gt;</description>
    <language>en-us</language>
    <item>
      <title>Moon found to be made of cheese</title>
      <link>https://example.com/moon</link>
      <description><![CDATA[<p>Scientists   <a href="https://example.com">say</a> so.</p><script>alert(1)</script>]]></description>
      <guid>moon-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <category>Space</category>
    </item>
    <item>
      <title>Tom &amp; Jerry return</title>
      <link>https://example.com/tom</link>
    </item>
  </channel>
</rss>`

func TestParseRSS(t *testing.T) {
	metadata, items, err := NewParser().Run([]byte(rssFixture))
	require.NoError(t, err)

	assert.Equal(t, "World News", metadata.Title)
	assert.Equal(t, "en-us", metadata.Language)
	assert.Equal(t, "Top stories", metadata.Description)

	require.Len(t, items, 2)

	moon := items[0]
	assert.Equal(t, "moon-1", moon.GUID)
	assert.Equal(t, "Scientists say so.", moon.Description)
	assert.True(t, moon.PublishedAt.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)), moon.PublishedAt)
	assert.Equal(t, []string{"Space"}, moon.Categories)
	assert.Equal(t, ContentHash(moon.Title, moon.Link), moon.ContentHash)

	tom := items[1]
	assert.Equal(t, "https://example.com/tom", tom.GUID, "GUID falls back to link")
	assert.Equal(t, "Tom & Jerry return", tom.Title)
}

func TestParseAtom(t *testing.T) {
	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <updated>2023-07-03T12:00:00Z</updated>
  <entry>
    <title>Entry</title>
    <link href="https://example.com/entry"/>
    <id>urn:entry:1</id>
    <updated>2023-07-03T11:00:00Z</updated>
    <content type="html">&lt;p&gt;Body&lt;/p&gt;</content>
  </entry>
</feed>`

	metadata, items, err := NewParser().Run([]byte(atom))
	require.NoError(t, err)
	assert.NotNil(t, metadata.FeedPublishedAt)
	require.Len(t, items, 1)
	assert.Equal(t, "Body", items[0].Content)
	assert.False(t, items[0].PublishedAt.IsZero())
}

func TestParseInvalidFeed(t *testing.T) {
	_, _, err := NewParser().Run([]byte("not a feed"))
	assert.Error(t, err)
}

func TestContentHash(t *testing.T) {
	a := ContentHash("Title", "https://example.com/a")
	assert.Equal(t, a, ContentHash("Title", "https://example.com/a"))
	assert.NotEqual(t, a, ContentHash("Title", "https://example.com/b"))
	assert.Len(t, a, 64)
}

func TestItemText(t *testing.T) {
	item := Item{Title: "Claim", Description: "Details", Content: "Details"}
	assert.Equal(t, "Claim\n\nDetails", item.Text())
	assert.Empty(t, strings.TrimSpace(Item{}.Text()))
}
