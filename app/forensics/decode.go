package forensics

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the decoded size of an image. Compressed formats can hide
// huge dimensions in a small upload.
const MaxPixels = 40_000_000

var ErrUndecodable = errors.New("undecodable image")

// Decode parses JPEG, PNG, GIF, WebP, BMP or TIFF data and returns the image
// with its alpha channel dropped, along with the format name. Images larger
// than MaxPixels are rejected before their pixels are decoded.
func Decode(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty data: %w", ErrUndecodable)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("image of %dx%d pixels exceeds the %d pixel limit: %w",
			cfg.Width, cfg.Height, MaxPixels, ErrUndecodable)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, "", fmt.Errorf("zero-sized image: %w", ErrUndecodable)
	}

	return opaque(img), format, nil
}

// opaque copies img into an RGBA image using the straight (non-premultiplied)
// color channels and full opacity.
func opaque(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

// luma returns the rounded Rec. 601 intensity of an 8-bit RGB triple.
func luma(r, g, b uint8) uint8 {
	v := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
