package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/truthlens/app/database"
)

// Generator renders the trends of a watched feed as RSS, annotated with their
// verification outcome.
type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{baseURL: strings.TrimSuffix(baseURL, "/"), version: version}
}

func (g *Generator) Run(feed database.Feed, trends []database.Trend) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(feed.Title, feed.Name)+" (verified)", 4)
	g.writeElement(&buf, "link", cmp.Or(feed.Link, feed.FeedURL), 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Fact-checked entries from %s", feed.FeedURL), 4)

	if g.baseURL != "" {
		fmt.Fprintf(&buf, "    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.baseURL+"/feeds/"+feed.Name))
	}

	lastBuildDate := time.Now().UTC()
	if len(trends) > 0 {
		lastBuildDate = cmp.Or(trends[0].PublishedAt, trends[0].DetectedAt, lastBuildDate)
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", "TruthLens/"+g.version, 4)
	g.writeElement(&buf, "language", feed.Language, 4)

	for _, trend := range trends {
		g.writeItem(&buf, trend)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, trend database.Trend) {
	buf.WriteString("    <item>\n")

	if trend.GUID != "" {
		fmt.Fprintf(buf, "      <guid isPermaLink=\"%t\">", isURL(trend.GUID))
		xml.EscapeText(buf, []byte(trend.GUID))
		buf.WriteString("</guid>\n")
	}

	title := trend.Title
	if trend.VerificationStatus == database.VerificationVerified && trend.Verdict != "" {
		title = fmt.Sprintf("[%s] %s", trend.Verdict, title)
	}
	g.writeElement(buf, "title", title, 6)
	g.writeElement(buf, "link", trend.Link, 6)
	g.writeElement(buf, "description", describe(trend), 6)
	g.writeElement(buf, "pubDate", trend.PublishedAt.Format(time.RFC1123Z), 6)

	for _, category := range trend.Categories {
		g.writeElement(buf, "category", category, 6)
	}
	if trend.VerificationStatus == database.VerificationVerified && trend.IsMisinformation {
		g.writeElement(buf, "category", "misinformation", 6)
	}

	buf.WriteString("    </item>\n")
}

func describe(trend database.Trend) string {
	original := cmp.Or(trend.Description, "No description available")

	switch trend.VerificationStatus {
	case database.VerificationVerified:
		return fmt.Sprintf("%s (confidence %.2f)\n\n%s\n\n%s",
			trend.Verdict, trend.Confidence, trend.VerificationResult, original)
	case database.VerificationFailed:
		return "Verification failed.\n\n" + original
	default:
		return original
	}
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<" + tag + ">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</" + tag + ">\n")
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
