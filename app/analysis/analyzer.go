// Package analysis routes a request through the text and image pipelines and
// merges their verdicts.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/truthlens/app/imagecheck"
	"github.com/lysyi3m/truthlens/app/textcheck"
)

// DefaultMinTextLength is the text length, in runes, above which text sent
// along with an image is verified too.
const DefaultMinTextLength = 50

var ErrNoInput = errors.New("no text or image provided")

type Request struct {
	Text          string
	Image         []byte
	ImageName     string
	SourceURL     string
	EmbeddedPosts []string
}

// Validate returns ErrNoInput when there is nothing to analyze.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Text) == "" && len(r.Image) == 0 && len(r.EmbeddedPosts) == 0 {
		return ErrNoInput
	}
	return nil
}

type TextVerifier interface {
	Run(ctx context.Context, in textcheck.Input) (*textcheck.Result, error)
}

type ImageVerifier interface {
	Run(ctx context.Context, in imagecheck.Input) (*imagecheck.Result, error)
}

type Analyzer struct {
	text       TextVerifier
	image      ImageVerifier
	minTextLen int
}

func NewAnalyzer(text TextVerifier, image ImageVerifier, minTextLen int) *Analyzer {
	if minTextLen <= 0 {
		minTextLen = DefaultMinTextLength
	}
	return &Analyzer{text: text, image: image, minTextLen: minTextLen}
}

// Analyze runs the pipelines req calls for. Without an image only the text
// pipeline runs. With an image, the text pipeline joins in when the text is
// longer than the minimum or embedded posts are given, and both run
// concurrently before their results are merged.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	textIn := textcheck.Input{Text: req.Text, EmbeddedPosts: req.EmbeddedPosts}

	var (
		report *Report
		mode   string
	)

	switch {
	case len(req.Image) == 0:
		mode = "text"
		res, err := a.text.Run(ctx, textIn)
		if err != nil {
			return nil, err
		}
		report = FromText(res)

	case a.wantsText(req):
		mode = "merged"
		// Text printed in the image is checked alongside the caption.
		textIn.Images = [][]byte{req.Image}
		var (
			textRes  *textcheck.Result
			imageRes *imagecheck.Result
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			res, err := a.text.Run(gctx, textIn)
			textRes = res
			return err
		})
		g.Go(func() error {
			res, err := a.image.Run(gctx, imagecheck.Input{Image: req.Image})
			imageRes = res
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		report = Merge(textRes, imageRes)

	default:
		mode = "image"
		res, err := a.image.Run(ctx, imagecheck.Input{Image: req.Image})
		if err != nil {
			return nil, err
		}
		report = FromImage(res)
	}

	slog.Info("Analysis completed",
		"mode", mode,
		"verdict", report.Verdict,
		"confidence", report.ConfidenceScore,
		"duration", time.Since(start))

	return report, nil
}

func (a *Analyzer) wantsText(req Request) bool {
	return utf8.RuneCountInString(strings.TrimSpace(req.Text)) > a.minTextLen || len(req.EmbeddedPosts) > 0
}
