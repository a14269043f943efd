package forensics

import (
	"image"
	"math"
	"math/cmplx"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// Images are reduced so their longer side is at most this many pixels
	// before the transform.
	maxSpectralSide = 1024

	maskRatio      = 0.1
	spectralWeight = 150
	logEpsilon     = 1e-8
)

// Spectrum is the result of the frequency-domain artifact analysis.
type Spectrum struct {
	Score float64 `json:"gan_score"`
	Mean  float64 `json:"spectral_mean"`
	Std   float64 `json:"spectral_std"`
}

// AnalyzeSpectrum measures how irregular the high-frequency content of img is.
// Upsampling layers in image generators leave periodic, grid-like energy there,
// which raises the spread of the log-magnitude spectrum relative to its mean.
func AnalyzeSpectrum(img *image.RGBA) Spectrum {
	gray := grayscale(shrink(img, maxSpectralSide))
	return spectrumOf(gray, gray.Bounds().Dx(), gray.Bounds().Dy())
}

// spectrumOf computes the score of a w×h grayscale image. The spectrum is
// centred, converted to 20·ln(|F|+ε), and a disk of radius 10% of the smaller
// side around the zero frequency is excluded before taking statistics.
func spectrumOf(gray *image.Gray, w, h int) Spectrum {
	magnitude := fft2(gray, w, h)

	radius := int(maskRatio * float64(min(w, h)))
	r2 := radius * radius
	cx, cy := w/2, h/2

	var sum, sumSq float64
	var n int

	for y := 0; y < h; y++ {
		// Position of this row after shifting the zero frequency to the centre.
		dy := (y+h/2)%h - cy
		for x := 0; x < w; x++ {
			dx := (x+w/2)%w - cx
			if dx*dx+dy*dy < r2 {
				continue
			}
			v := 20 * math.Log(magnitude[y*w+x]+logEpsilon)
			sum += v
			sumSq += v * v
			n++
		}
	}

	if n == 0 {
		return Spectrum{}
	}

	mean := sum / float64(n)
	variance := math.Max(0, sumSq/float64(n)-mean*mean)
	std := math.Sqrt(variance)

	score := 0.0
	if mean > 0 {
		score = math.Min(100, std/mean*spectralWeight)
	}

	return Spectrum{
		Score: round2(score),
		Mean:  round2(mean),
		Std:   round2(std),
	}
}

// fft2 returns |F| of the 2-D discrete Fourier transform in row-major order.
func fft2(gray *image.Gray, w, h int) []float64 {
	data := make([]complex128, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = complex(float64(gray.GrayAt(x, y).Y), 0)
		}
	}

	rowFFT := fourier.NewCmplxFFT(w)
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		rowFFT.Coefficients(row, data[y*w:(y+1)*w])
		copy(data[y*w:(y+1)*w], row)
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	out := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = data[y*w+x]
		}
		colFFT.Coefficients(out, col)
		for y := 0; y < h; y++ {
			data[y*w+x] = out[y]
		}
	}

	magnitude := make([]float64, w*h)
	for i, c := range data {
		magnitude[i] = cmplx.Abs(c)
	}
	return magnitude
}

func grayscale(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := img.RGBAAt(b.Min.X+x, b.Min.Y+y)
			gray.Pix[y*gray.Stride+x] = luma(c.R, c.G, c.B)
		}
	}
	return gray
}

// shrink scales img so its longer side is at most maxSide and both sides are
// 5-smooth, which keeps the transform on gonum's fast radix paths.
func shrink(img *image.RGBA, maxSide int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	nw, nh := w, h
	if w > maxSide || h > maxSide {
		scale := float64(maxSide) / float64(max(w, h))
		nw = max(1, int(float64(w)*scale))
		nh = max(1, int(float64(h)*scale))
	}
	nw, nh = smoothFloor(nw), smoothFloor(nh)
	if nw == w && nh == h {
		return img
	}

	out := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out
}

// smoothFloor returns the largest n' <= n with no prime factor above 5.
func smoothFloor(n int) int {
	for ; n > 1; n-- {
		m := n
		for _, p := range []int{2, 3, 5} {
			for m%p == 0 {
				m /= p
			}
		}
		if m == 1 {
			return n
		}
	}
	return 1
}
