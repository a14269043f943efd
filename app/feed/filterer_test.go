package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiltererNoFilters(t *testing.T) {
	items := []Item{{Title: "A"}, {Title: "B"}}

	result := NewFilterer().Run(items, &Config{})

	for _, item := range result {
		assert.False(t, item.IsFiltered, item.Title)
	}
}

func TestFiltererRules(t *testing.T) {
	config := &Config{Filters: []ConfigFilter{
		{Field: "title", Excludes: []string{"Sponsored"}},
		{Field: "categories", Includes: []string{"politics", "health"}},
	}}

	items := []Item{
		{Title: "Vaccine claim", Categories: []string{"Health"}},
		{Title: "SPONSORED: buy now", Categories: []string{"health"}},
		{Title: "Match report", Categories: []string{"Sport"}},
	}

	result := NewFilterer().Run(items, config)

	assert.False(t, result[0].IsFiltered, result[0].FilterReason)
	assert.True(t, result[1].IsFiltered)
	assert.Equal(t, "Excluded by title filter: contains 'Sponsored'", result[1].FilterReason)
	assert.True(t, result[2].IsFiltered)
	assert.Contains(t, result[2].FilterReason, "does not contain any of")
}

func TestFiltererResetsPreviousState(t *testing.T) {
	items := []Item{{Title: "Now allowed", IsFiltered: true, FilterReason: "old rule"}}

	result := NewFilterer().Run(items, &Config{})

	assert.False(t, result[0].IsFiltered)
	assert.Empty(t, result[0].FilterReason)
	assert.True(t, items[0].IsFiltered, "input slice must stay untouched")
}
