package feed

import (
	"slices"
	"strings"
	"time"
)

// Watched feed types

type Metadata struct {
	Title           string
	Link            string
	Description     string
	Language        string
	FeedPublishedAt *time.Time
}

// Item is a feed entry reduced to plain text, ready to be stored as a trend.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	PublishedAt time.Time
	Categories  []string

	ContentHash  string
	IsFiltered   bool
	FilterReason string
}

// Text is what gets verified for the item.
func (i Item) Text() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{i.Title, i.Description, i.Content} {
		if s != "" && !slices.Contains(parts, s) {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"`      // seconds
	Verify          bool `yaml:"verify"`       // run stored trends through text verification
	VerifyLimit     int  `yaml:"verify_limit"` // trends verified per tick
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
