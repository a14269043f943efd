package feed

import (
	"fmt"
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run marks the items rejected by the filters of feedConfig. Items are
// returned in order with IsFiltered and FilterReason set.
func (f *Filterer) Run(items []Item, feedConfig *Config) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		item.IsFiltered, item.FilterReason = f.applyFilters(item, feedConfig.Filters)
		out = append(out, item)
	}
	return out
}

func (f *Filterer) applyFilters(item Item, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := strings.ToLower(fieldValue(item, filter.Field))

		for _, exclude := range filter.Excludes {
			if strings.Contains(value, strings.ToLower(exclude)) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 && !containsAny(value, filter.Includes) {
			return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
		}
	}

	return false, ""
}

func containsAny(value string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(value, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func fieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "description":
		return item.Description
	case "content":
		return item.Content
	case "link":
		return item.Link
	case "categories":
		return strings.Join(item.Categories, " ")
	default:
		return ""
	}
}
