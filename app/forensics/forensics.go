// Package forensics computes tamper and generation signals for an image:
// compression residue, frequency-domain artifacts and metadata signatures.
//
// All signals are derived fresh from the bytes of a single image.
package forensics

import (
	"fmt"
	"image"
)

// Signals is the combined forensic evidence for one image.
type Signals struct {
	ELAScore     float64 `json:"ela_score"`
	MaxDiff      int     `json:"max_diff"`
	MeanDiff     float64 `json:"mean_diff"`
	GANScore     float64 `json:"gan_score"`
	SpectralMean float64 `json:"spectral_mean"`
	SpectralStd  float64 `json:"spectral_std"`

	Software      string `json:"software"`
	IsAIGenerated bool   `json:"is_ai_generated"`
	IsEdited      bool   `json:"is_edited"`
}

func NewSignals(meta Metadata, ela ErrorLevel, spectrum Spectrum) Signals {
	return Signals{
		ELAScore:      ela.Score,
		MaxDiff:       ela.MaxDiff,
		MeanDiff:      ela.MeanDiff,
		GANScore:      spectrum.Score,
		SpectralMean:  spectrum.Mean,
		SpectralStd:   spectrum.Std,
		Software:      meta.Software,
		IsAIGenerated: meta.IsAIGenerated,
		IsEdited:      meta.IsEdited,
	}
}

type Analyzer struct {
	signatures *Signatures
}

func NewAnalyzer(signatures *Signatures) *Analyzer {
	if signatures == nil {
		signatures = DefaultSignatures()
	}
	return &Analyzer{signatures: signatures}
}

// Metadata scans the raw image bytes for tool signatures.
func (a *Analyzer) Metadata(data []byte) Metadata {
	return ScanMetadata(data, a.signatures)
}

// Tamper runs both numeric heuristics on a decoded image.
func (a *Analyzer) Tamper(img *image.RGBA) (ErrorLevel, Spectrum, error) {
	ela, err := AnalyzeErrorLevel(img)
	if err != nil {
		return ErrorLevel{}, Spectrum{}, err
	}
	return ela, AnalyzeSpectrum(img), nil
}

// Analyze decodes data and computes every signal. It fails with ErrUndecodable
// when data is not a supported image.
func (a *Analyzer) Analyze(data []byte) (Signals, error) {
	img, _, err := Decode(data)
	if err != nil {
		return Signals{}, err
	}

	ela, spectrum, err := a.Tamper(img)
	if err != nil {
		return Signals{}, fmt.Errorf("tamper analysis failed: %w", err)
	}

	return NewSignals(a.Metadata(data), ela, spectrum), nil
}
