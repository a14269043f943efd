package textcheck

import (
	"slices"

	"github.com/lysyi3m/truthlens/app/evidence"
	"github.com/lysyi3m/truthlens/app/pipeline"
)

// Adjudication is the parsed outcome of the adjudication stage.
type Adjudication struct {
	Label     Label
	Certainty float64
}

// State is the per-run pipeline state. Input is fixed at the start; every other
// key is written by exactly one stage.
type State struct {
	Input Input

	Source       pipeline.Slot[string]
	Claim        pipeline.Slot[string]
	Queries      pipeline.Slot[[]string]
	Evidence     pipeline.Slot[[]evidence.Item]
	Notes        pipeline.Slot[string]
	Adjudication pipeline.Slot[Adjudication]
	Report       pipeline.Slot[string]
	Confidence   pipeline.Slot[float64]

	// Warnings accumulate across stages.
	Warnings []string
}

// Update is the partial state a stage returns.
type Update struct {
	Source       pipeline.Slot[string]
	Claim        pipeline.Slot[string]
	Queries      pipeline.Slot[[]string]
	Evidence     pipeline.Slot[[]evidence.Item]
	Notes        pipeline.Slot[string]
	Adjudication pipeline.Slot[Adjudication]
	Report       pipeline.Slot[string]
	Confidence   pipeline.Slot[float64]
	Warnings     []string
}

func reduce(s State, u Update) (State, error) {
	next := s
	next.Warnings = slices.Concat(s.Warnings, u.Warnings)

	merges := []error{
		pipeline.Merge("source", &next.Source, u.Source),
		pipeline.Merge("claim", &next.Claim, u.Claim),
		pipeline.Merge("queries", &next.Queries, u.Queries),
		pipeline.Merge("evidence", &next.Evidence, u.Evidence),
		pipeline.Merge("notes", &next.Notes, u.Notes),
		pipeline.Merge("adjudication", &next.Adjudication, u.Adjudication),
		pipeline.Merge("report", &next.Report, u.Report),
		pipeline.Merge("confidence", &next.Confidence, u.Confidence),
	}
	for _, err := range merges {
		if err != nil {
			return s, err
		}
	}
	return next, nil
}
