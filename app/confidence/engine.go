// Package confidence fuses claim relevance, source reputation and model certainty
// into a single score.
package confidence

import (
	"math"

	"github.com/lysyi3m/truthlens/app/evidence"
	"github.com/lysyi3m/truthlens/app/trust"
)

const (
	relevanceWeight = 0.4
	trustWeight     = 0.4
	certaintyWeight = 0.2

	// A single item from a non-high-trust domain is discounted.
	lowEvidenceCount   = 2
	penaltyTrustCutoff = 90.0
	lowEvidenceFactor  = 0.90

	// MaxScore is the upper bound of any reported score.
	MaxScore = 98.0

	neutralRelevance = 50.0
)

// Breakdown carries the intermediate values of a single score computation.
type Breakdown struct {
	Relevance   float64
	SourceTrust float64
	Certainty   float64
	Raw         float64
	Penalized   bool
	Final       float64
}

type Engine struct {
	tiers *trust.Table
}

func NewEngine(tiers *trust.Table) *Engine {
	if tiers == nil {
		tiers = trust.Default()
	}
	return &Engine{tiers: tiers}
}

// Calculate returns the confidence for claim given the evidence and the model's
// certainty (0-100). The result is in [0, MaxScore] with two decimals.
func (e *Engine) Calculate(claim string, items []evidence.Item, certainty float64) float64 {
	return e.Score(claim, items, certainty).Final
}

// Score is Calculate with the intermediate values exposed.
func (e *Engine) Score(claim string, items []evidence.Item, certainty float64) Breakdown {
	if len(items) == 0 {
		return Breakdown{}
	}

	certainty = clamp(certainty, 0, 100)

	b := Breakdown{
		Relevance:   e.relevance(claim, items),
		SourceTrust: e.sourceTrust(items),
		Certainty:   certainty,
	}

	b.Raw = b.Relevance*relevanceWeight + b.SourceTrust*trustWeight + certainty*certaintyWeight

	score := b.Raw
	if len(items) < lowEvidenceCount && b.SourceTrust < penaltyTrustCutoff {
		score *= lowEvidenceFactor
		b.Penalized = true
	}

	b.Final = round2(clamp(score, 0, MaxScore))
	return b
}

func (e *Engine) relevance(claim string, items []evidence.Item) float64 {
	docs := make([]string, 0, len(items))
	for _, item := range items {
		docs = append(docs, item.Content)
	}

	similarity, ok := maxCosine(claim, docs)
	if !ok {
		return neutralRelevance
	}
	return similarity * 100
}

func (e *Engine) sourceTrust(items []evidence.Item) float64 {
	total := 0.0
	for _, item := range items {
		total += e.tiers.Score(item.URL)
	}
	return total / float64(len(items))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
