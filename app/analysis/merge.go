package analysis

import (
	"math"
	"slices"

	"github.com/lysyi3m/truthlens/app/evidence"
	"github.com/lysyi3m/truthlens/app/imagecheck"
	"github.com/lysyi3m/truthlens/app/textcheck"
)

const (
	textWeight  = 0.7
	imageWeight = 0.3
)

// Report is the outcome of one analysis request, whichever pipelines ran.
type Report struct {
	IsMisinformation bool            `json:"is_misinformation"`
	Verdict          string          `json:"verdict"`
	ConfidenceScore  float64         `json:"confidence_score"`
	Report           string          `json:"report"`
	TextReport       string          `json:"text_report,omitempty"`
	ImageReport      string          `json:"image_report,omitempty"`
	Citations        []string        `json:"citations"`
	Evidence         []evidence.Item `json:"evidence,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
}

func FromText(r *textcheck.Result) *Report {
	return &Report{
		IsMisinformation: r.IsMisinformation,
		Verdict:          string(r.Verdict),
		ConfidenceScore:  r.ConfidenceScore,
		Report:           r.Report,
		TextReport:       r.Report,
		Citations:        nonNil(r.Citations),
		Evidence:         r.Evidence,
		Warnings:         r.Warnings,
	}
}

func FromImage(r *imagecheck.Result) *Report {
	return &Report{
		IsMisinformation: r.IsMisinformation,
		Verdict:          string(r.Verdict),
		ConfidenceScore:  r.ConfidenceScore,
		Report:           r.Report,
		ImageReport:      r.Report,
		Citations:        nonNil(r.Citations),
		Warnings:         r.Warnings,
	}
}

// Merge combines a text and an image result. The text verdict and citations
// are authoritative; confidence is weighted 0.7 text to 0.3 image.
func Merge(text *textcheck.Result, image *imagecheck.Result) *Report {
	confidence := text.ConfidenceScore*textWeight + image.ConfidenceScore*imageWeight

	return &Report{
		IsMisinformation: text.IsMisinformation,
		Verdict:          string(text.Verdict),
		ConfidenceScore:  math.Round(confidence*100) / 100,
		Report:           "## Image Analysis\n\n" + image.Report + "\n\n## Text Verification\n\n" + text.Report,
		TextReport:       text.Report,
		ImageReport:      image.Report,
		Citations:        nonNil(text.Citations),
		Evidence:         text.Evidence,
		Warnings:         slices.Concat(image.Warnings, text.Warnings),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
