package textcheck

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lysyi3m/truthlens/app/llm"
)

// Label is the adjudicated status of a claim.
type Label string

const (
	True       Label = "TRUE"
	LikelyTrue Label = "LIKELY TRUE"
	False      Label = "FALSE"
	Misleading Label = "MISLEADING"
	Unverified Label = "UNVERIFIED"
)

const (
	assertiveCertainty = 90.0
	neutralCertainty   = 50.0
)

var labelPattern = regexp.MustCompile(`\b(LIKELY TRUE|REPORTED BY|TRUE|FALSE|MISLEADING|UNVERIFIED)\b`)

// severity orders labels so the most damaging verdict wins when notes hold
// several.
var severity = map[Label]int{
	True:       1,
	LikelyTrue: 2,
	Unverified: 3,
	Misleading: 4,
	False:      5,
}

// IsMisinformation reports whether the label marks the claim as misinformation.
func (l Label) IsMisinformation() bool {
	return l == False || l == Misleading
}

// Certainty is the model certainty fed to the confidence engine: high when the
// label asserts truth or falsity, neutral otherwise.
func (l Label) Certainty() float64 {
	switch l {
	case True, LikelyTrue, False:
		return assertiveCertainty
	default:
		return neutralCertainty
	}
}

// parseVerdict reads the "Verdict:" fields of adjudication notes. Each field
// contributes its first recognised label, so a qualifier such as
// "LIKELY TRUE / reported-but-unverified" stays LIKELY TRUE. Across claims the
// most severe label is returned, and the certainty is assertive when any claim
// was judged true or false.
func parseVerdict(notes string) (Label, float64, error) {
	fields := llm.ParseFields(notes, "Verdict", "Confidence", "Explanation")

	values := fields.All("Verdict")
	if len(values) == 0 {
		return Unverified, neutralCertainty, fmt.Errorf("missing verdict field: %w", llm.ErrMalformedOutput)
	}

	var labels []Label
	for _, v := range values {
		if l, ok := firstLabel(v); ok {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		return Unverified, neutralCertainty, fmt.Errorf("unrecognised verdict %q: %w", values[0], llm.ErrMalformedOutput)
	}

	label, certainty := combine(labels)
	return label, certainty, nil
}

// scanVerdict falls back to keyword detection over the whole text.
func scanVerdict(notes string) (Label, float64) {
	labels := findLabels(notes)
	if len(labels) == 0 {
		return Unverified, neutralCertainty
	}
	return combine(labels)
}

func combine(labels []Label) (Label, float64) {
	label, certainty := labels[0], neutralCertainty
	for _, l := range labels {
		if severity[l] > severity[label] {
			label = l
		}
		certainty = max(certainty, l.Certainty())
	}
	return label, certainty
}

func firstLabel(text string) (Label, bool) {
	labels := findLabels(text)
	if len(labels) == 0 {
		return "", false
	}
	return labels[0], true
}

func findLabels(text string) []Label {
	matches := labelPattern.FindAllString(strings.ToUpper(text), -1)
	labels := make([]Label, 0, len(matches))
	for _, m := range matches {
		if m == "REPORTED BY" {
			labels = append(labels, LikelyTrue)
			continue
		}
		labels = append(labels, Label(m))
	}
	return labels
}
