package imagecheck

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lysyi3m/truthlens/app/forensics"
	"github.com/lysyi3m/truthlens/app/llm"
)

// Verdict is the classification of an image.
type Verdict string

const (
	Real        Verdict = "REAL"
	Fake        Verdict = "FAKE"
	Manipulated Verdict = "MANIPULATED"
	Unknown     Verdict = "UNKNOWN"
)

const (
	defaultConfidence = 50.0
	highErrorLevel    = 50.0
)

var verdictPattern = regexp.MustCompile(`\b(REAL|FAKE|MANIPULATED|UNKNOWN)\b`)

// IsMisinformation reports whether the verdict marks the image as fabricated
// or altered.
func (v Verdict) IsMisinformation() bool {
	return v == Fake || v == Manipulated
}

// Fusion is the parsed model judgement.
type Fusion struct {
	Verdict    Verdict
	Confidence float64
	Report     string
	Warnings   []string
}

// parseFusion reads the Verdict, Confidence and Report fields. A missing verdict
// becomes Unknown and a missing confidence becomes 50; both are reported as
// warnings.
func parseFusion(out string) Fusion {
	fields := llm.ParseFields(out, "Verdict", "Confidence", "Report")

	f := Fusion{Verdict: Unknown, Confidence: defaultConfidence}

	if v, ok := fields.First("Verdict"); ok {
		if m := verdictPattern.FindString(strings.ToUpper(v)); m != "" {
			f.Verdict = Verdict(m)
		} else {
			f.Warnings = append(f.Warnings, fmt.Sprintf("fusion: unrecognised verdict %q: %v", v, llm.ErrMalformedOutput))
		}
	} else {
		f.Warnings = append(f.Warnings, fmt.Sprintf("fusion: missing verdict field: %v", llm.ErrMalformedOutput))
	}

	if n, err := fields.Number("Confidence"); err == nil {
		f.Confidence = min(max(n, 0), 100)
	} else {
		f.Warnings = append(f.Warnings, "fusion: "+err.Error())
	}

	if r, ok := fields.First("Report"); ok && r != "" {
		f.Report = r
	} else {
		f.Report = strings.TrimSpace(out)
	}

	return f
}

// guard never lets a REAL verdict stand against hard forensic evidence.
func guard(f Fusion, s forensics.Signals) Fusion {
	if f.Verdict != Real {
		return f
	}

	switch {
	case s.IsAIGenerated:
		f.Verdict = Fake
		f.Report = appendSentence(f.Report, "The file's details name a tool that creates AI images, so it is unlikely to be a real photo.")
		f.Warnings = append(f.Warnings, "fusion: REAL overridden by generation signature")
	case s.IsEdited || s.ELAScore > highErrorLevel:
		f.Verdict = Manipulated
		f.Report = appendSentence(f.Report, "Inconsistencies in the image or its editing history suggest it has been altered.")
		f.Warnings = append(f.Warnings, "fusion: REAL overridden by editing signs")
	}
	return f
}

func appendSentence(report, sentence string) string {
	if report == "" {
		return sentence
	}
	return report + " " + sentence
}
