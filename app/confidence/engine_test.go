package confidence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/truthlens/app/evidence"
	"github.com/lysyi3m/truthlens/app/trust"
)

const claim = "The central bank cut interest rates by half a point on Tuesday"

func newEngine() *Engine {
	return NewEngine(trust.Default())
}

func TestCalculate_EmptyEvidenceIsZero(t *testing.T) {
	engine := newEngine()

	assert.Equal(t, 0.0, engine.Calculate(claim, nil, 90))
	assert.Equal(t, 0.0, engine.Calculate(claim, []evidence.Item{}, 100))
}

func TestCalculate_CapsAtMaxScore(t *testing.T) {
	items := []evidence.Item{
		{URL: "https://www.reuters.com/markets/rates", Content: claim},
		{URL: "https://apnews.com/article/rates", Content: claim},
	}

	assert.Equal(t, MaxScore, newEngine().Calculate(claim, items, 100))
}

func TestScore_LowEvidencePenalty(t *testing.T) {
	items := []evidence.Item{
		{URL: "http://example.com/post", Content: claim},
	}

	b := newEngine().Score(claim, items, 90)

	require.True(t, b.Penalized)
	assert.InDelta(t, 100.0, b.Relevance, 1e-6)
	assert.Equal(t, 30.0, b.SourceTrust)
	// 100*0.4 + 30*0.4 + 90*0.2 = 70, then *0.9
	assert.InDelta(t, 70.0, b.Raw, 1e-6)
	assert.Equal(t, 63.0, b.Final)
	assert.LessOrEqual(t, b.Final, 0.90*b.Raw+0.005)
}

func TestScore_PenaltyWaivedForHighTrustSource(t *testing.T) {
	items := []evidence.Item{
		{URL: "https://www.reuters.com/world/story", Content: "Unrelated weather report from the coast"},
	}

	b := newEngine().Score(claim, items, 50)

	assert.False(t, b.Penalized)
	assert.Equal(t, 100.0, b.SourceTrust)
	assert.Equal(t, round2(b.Raw), b.Final)
}

func TestScore_VectorisationFailureUsesNeutralRelevance(t *testing.T) {
	items := []evidence.Item{
		{URL: "http://example.com", Content: "!"},
	}

	b := newEngine().Score("?", items, 50)

	assert.Equal(t, 50.0, b.Relevance)
	// 50*0.4 + 30*0.4 + 50*0.2 = 42, then *0.9
	assert.Equal(t, 37.8, b.Final)
}

func TestScore_MeanTrustAcrossItems(t *testing.T) {
	items := []evidence.Item{
		{URL: "https://www.reuters.com/a", Content: "football results"},
		{URL: "https://edition.cnn.com/b", Content: "weather tomorrow"},
	}

	b := newEngine().Score(claim, items, 50)

	assert.Equal(t, 0.0, b.Relevance)
	assert.Equal(t, 85.0, b.SourceTrust)
	assert.False(t, b.Penalized)
	assert.Equal(t, 44.0, b.Final)
}

func TestCalculate_RangeAndRounding(t *testing.T) {
	engine := newEngine()

	contents := []string{
		claim,
		"rates were cut",
		"a completely different story about football",
		"",
		"Central bank, interest, rates, Tuesday; half point cut.",
	}
	urls := []string{
		"https://www.bbc.com/news",
		"https://foxnews.com/x",
		"https://unknown.blog/x",
		"",
	}

	for _, certainty := range []float64{-10, 0, 50, 90, 100, 150} {
		for n := 1; n <= len(contents); n++ {
			items := make([]evidence.Item, 0, n)
			for i := 0; i < n; i++ {
				items = append(items, evidence.Item{URL: urls[i%len(urls)], Content: contents[i]})
			}

			score := engine.Calculate(claim, items, certainty)

			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, MaxScore)
			assert.Equal(t, math.Round(score*100)/100, score)
		}
	}
}

func TestMaxCosine(t *testing.T) {
	sim, ok := maxCosine("moon cheese", []string{"moon cheese"})
	require.True(t, ok)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, ok = maxCosine("moon cheese", []string{"sun", "moon rock"})
	require.True(t, ok)
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)

	_, ok = maxCosine("", []string{"", "a"})
	assert.False(t, ok)
}
