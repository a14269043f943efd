package forensics

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

const (
	elaQuality = 90
	elaScale   = 20
	elaWeight  = 0.5
)

// ErrorLevel is the result of re-compression residue analysis.
type ErrorLevel struct {
	Score    float64 `json:"ela_score"`
	MaxDiff  int     `json:"max_diff"`
	MeanDiff float64 `json:"mean_diff"`
}

// AnalyzeErrorLevel re-encodes img as JPEG at a fixed quality and measures how
// unevenly the compression residue is spread. Spliced or retouched regions
// recompress differently from the rest of the picture and show up as local
// peaks above the mean residue.
func AnalyzeErrorLevel(img *image.RGBA) (ErrorLevel, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: elaQuality}); err != nil {
		return ErrorLevel{}, fmt.Errorf("failed to re-encode image: %w", err)
	}

	decoded, err := jpeg.Decode(&buf)
	if err != nil {
		return ErrorLevel{}, fmt.Errorf("failed to decode re-encoded image: %w", err)
	}

	resaved := image.NewRGBA(decoded.Bounds())
	draw.Draw(resaved, resaved.Bounds(), decoded, decoded.Bounds().Min, draw.Src)

	return compareResidue(img, resaved), nil
}

// compareResidue computes the error level between an image and its re-encoded
// copy. Per channel differences are amplified (saturating at 255) before being
// reduced to intensity.
func compareResidue(original, resaved *image.RGBA) ErrorLevel {
	b := original.Bounds().Intersect(resaved.Bounds())
	if b.Empty() {
		return ErrorLevel{}
	}

	maxDiff := 0
	sum := 0.0

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			o := original.RGBAAt(x, y)
			r := resaved.RGBAAt(x, y)

			v := int(luma(amplify(o.R, r.R), amplify(o.G, r.G), amplify(o.B, r.B)))
			if v > maxDiff {
				maxDiff = v
			}
			sum += float64(v)
		}
	}

	mean := sum / float64(b.Dx()*b.Dy())
	score := math.Min(100, (float64(maxDiff)-mean)*elaWeight)

	return ErrorLevel{
		Score:    round2(score),
		MaxDiff:  maxDiff,
		MeanDiff: round2(mean),
	}
}

func amplify(a, b uint8) uint8 {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return uint8(min(d*elaScale, 255))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
