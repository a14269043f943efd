// Package imagecheck judges whether an image is authentic, edited or generated.
package imagecheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/truthlens/app/evidence"
	"github.com/lysyi3m/truthlens/app/forensics"
	"github.com/lysyi3m/truthlens/app/llm"
	"github.com/lysyi3m/truthlens/app/ocr"
	"github.com/lysyi3m/truthlens/app/pipeline"
)

type Input struct {
	Image []byte
}

type Result struct {
	Verdict          Verdict            `json:"verdict"`
	IsMisinformation bool               `json:"is_misinformation"`
	ConfidenceScore  float64            `json:"confidence_score"`
	Report           string             `json:"report"`
	Citations        []string           `json:"citations"`
	OCRText          string             `json:"ocr_text"`
	Signals          *forensics.Signals `json:"signals,omitempty"`
	Warnings         []string           `json:"warnings,omitempty"`
}

// State is the per-run pipeline state. Signals stays unset when the image
// cannot be decoded.
type State struct {
	Input Input

	OCRText  pipeline.Slot[string]
	Metadata pipeline.Slot[forensics.Metadata]
	Signals  pipeline.Slot[forensics.Signals]
	Fusion   pipeline.Slot[Fusion]
}

type Update struct {
	OCRText  pipeline.Slot[string]
	Metadata pipeline.Slot[forensics.Metadata]
	Signals  pipeline.Slot[forensics.Signals]
	Fusion   pipeline.Slot[Fusion]
}

func reduce(s State, u Update) (State, error) {
	next := s
	if err := errors.Join(
		pipeline.Merge("ocr_text", &next.OCRText, u.OCRText),
		pipeline.Merge("metadata", &next.Metadata, u.Metadata),
		pipeline.Merge("signals", &next.Signals, u.Signals),
		pipeline.Merge("fusion", &next.Fusion, u.Fusion),
	); err != nil {
		return s, err
	}
	return next, nil
}

type Pipeline struct {
	model    llm.LanguageModel
	analyzer *forensics.Analyzer
	ocr      ocr.Extractor
}

func New(model llm.LanguageModel, analyzer *forensics.Analyzer, extractor ocr.Extractor) *Pipeline {
	if analyzer == nil {
		analyzer = forensics.NewAnalyzer(nil)
	}
	if extractor == nil {
		extractor = ocr.Nop{}
	}
	return &Pipeline{model: model, analyzer: analyzer, ocr: extractor}
}

// Run analyzes one image. Only a model failure is returned as an error;
// undecodable bytes produce an UNKNOWN result.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	state, err := pipeline.Run(ctx, State{Input: in}, reduce,
		pipeline.Stage[State, Update]{Name: "ocr", Run: p.extractText},
		pipeline.Stage[State, Update]{Name: "metadata", Run: p.scanMetadata},
		pipeline.Stage[State, Update]{Name: "forensics", Run: p.analyze},
		pipeline.Stage[State, Update]{Name: "fusion", Run: p.fuse},
	)
	if err != nil {
		return nil, fmt.Errorf("image analysis failed: %w", err)
	}

	f := state.Fusion.Value()
	result := &Result{
		Verdict:          f.Verdict,
		IsMisinformation: f.Verdict.IsMisinformation(),
		ConfidenceScore:  f.Confidence,
		Report:           f.Report,
		Citations:        []string{},
		OCRText:          state.OCRText.Value(),
		Warnings:         f.Warnings,
	}
	if s, ok := state.Signals.Get(); ok {
		result.Signals = &s
	}

	slog.Info("Image analysis completed", "verdict", result.Verdict, "confidence", result.ConfidenceScore)

	return result, nil
}

func (p *Pipeline) extractText(ctx context.Context, s State) (Update, error) {
	return Update{OCRText: pipeline.Set(p.ocr.Extract(ctx, s.Input.Image))}, nil
}

func (p *Pipeline) scanMetadata(_ context.Context, s State) (Update, error) {
	return Update{Metadata: pipeline.Set(p.analyzer.Metadata(s.Input.Image))}, nil
}

func (p *Pipeline) analyze(_ context.Context, s State) (Update, error) {
	img, format, err := forensics.Decode(s.Input.Image)
	if err != nil {
		slog.Warn("Image is not decodable", "error", err)
		return Update{}, nil
	}

	ela, spectrum, err := p.analyzer.Tamper(img)
	if err != nil {
		slog.Warn("Tamper analysis failed", "format", format, "error", err)
		return Update{}, nil
	}

	slog.Debug("Forensic signals computed", "format", format, "ela", ela.Score, "gan", spectrum.Score)

	return Update{Signals: pipeline.Set(forensics.NewSignals(s.Metadata.Value(), ela, spectrum))}, nil
}

func (p *Pipeline) fuse(ctx context.Context, s State) (Update, error) {
	signals, ok := s.Signals.Get()
	if !ok {
		return Update{Fusion: pipeline.Set(Fusion{
			Verdict:  Unknown,
			Report:   undecodableReport,
			Warnings: []string{forensics.ErrUndecodable.Error()},
		})}, nil
	}

	prompt := fmt.Sprintf(fusionPrompt,
		evidence.Truncate(s.OCRText.Value(), maxOCRChars),
		softwareOrNA(signals.Software),
		signals.IsAIGenerated,
		signals.IsEdited,
		signals.ELAScore,
		signals.MaxDiff,
		signals.GANScore,
		signals.SpectralMean,
		signals.SpectralStd,
	)

	out, err := p.model.Infer(ctx, prompt)
	if err != nil {
		return Update{}, fmt.Errorf("failed to fuse forensic signals: %w", err)
	}

	return Update{Fusion: pipeline.Set(guard(parseFusion(out), signals))}, nil
}

func softwareOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
