package evidence

import "fmt"

// Placeholder returns the fixed result pair used when no web search provider
// can answer query. The pair keeps later stages working offline and is fully
// deterministic for a given query.
func Placeholder(query string) []Item {
	return []Item{
		{
			URL:     "http://example.com",
			Title:   "Search Result for " + query,
			Content: fmt.Sprintf("This is a mock search result content for query: %s. It claims that X is true.", query),
			Source:  SourcePlaceholder,
		},
		{
			URL:     "http://factcheck.org/example",
			Title:   "Debunking " + query,
			Content: fmt.Sprintf("This is a mock fact check. The claim in %s is mostly FALSE.", query),
			Source:  SourcePlaceholder,
		},
	}
}
