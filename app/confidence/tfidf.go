package confidence

import (
	"math"

	"github.com/lysyi3m/truthlens/app/tokens"
)

type vector map[string]float64

// maxCosine fits TF-IDF weights over the query and docs together and returns the
// highest cosine similarity between the query and any doc. ok is false when the
// combined vocabulary is empty.
//
// Weights use smoothed idf, ln((1+n)/(1+df)) + 1, over raw term counts, and every
// vector is L2 normalised.
func maxCosine(query string, docs []string) (float64, bool) {
	corpus := make([][]string, 0, len(docs)+1)
	corpus = append(corpus, tokens.Split(query))
	for _, d := range docs {
		corpus = append(corpus, tokens.Split(d))
	}

	df := make(map[string]int)
	for _, terms := range corpus {
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	if len(df) == 0 {
		return 0, false
	}

	n := float64(len(corpus))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	q := weigh(corpus[0], idf)

	best := 0.0
	for _, terms := range corpus[1:] {
		if sim := dot(q, weigh(terms, idf)); sim > best {
			best = sim
		}
	}

	return math.Min(best, 1), true
}

func weigh(terms []string, idf map[string]float64) vector {
	v := make(vector, len(terms))
	for _, t := range terms {
		v[t]++
	}

	norm := 0.0
	for t, tf := range v {
		w := tf * idf[t]
		v[t] = w
		norm += w * w
	}

	if norm == 0 {
		return v
	}

	norm = math.Sqrt(norm)
	for t := range v {
		v[t] /= norm
	}
	return v
}

func dot(a, b vector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for t, w := range a {
		sum += w * b[t]
	}
	return sum
}
