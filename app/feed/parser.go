package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// Parser turns RSS/Atom documents into plain-text items.
type Parser struct {
	gofeedParser *gofeed.Parser
	policy       *bluemonday.Policy
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		policy:       bluemonday.StrictPolicy(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:           feed.Title,
		Link:            feed.Link,
		Description:     p.plainText(feed.Description),
		Language:        feed.Language,
		FeedPublishedAt: cmp.Or(feed.PublishedParsed, feed.UpdatedParsed),
	}

	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		normalized := p.normalizeItem(item)
		normalized.ContentHash = ContentHash(normalized.Title, normalized.Link)
		items = append(items, normalized)
	}

	return metadata, items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		GUID:        cmp.Or(item.GUID, item.Link),
		Title:       p.plainText(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Description: p.plainText(item.Description),
		Content:     p.plainText(item.Content),
		Categories:  item.Categories,
	}

	if published := cmp.Or(item.PublishedParsed, item.UpdatedParsed); published != nil {
		normalized.PublishedAt = published.UTC()
	}

	return normalized
}

// plainText strips markup and collapses whitespace.
func (p *Parser) plainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(p.policy.Sanitize(s))), " ")
}

// ContentHash identifies an entry by its title and link.
func ContentHash(title, link string) string {
	hash := sha256.Sum256([]byte(title + "|" + link))
	return hex.EncodeToString(hash[:])
}
