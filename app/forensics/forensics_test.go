package forensics

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func noise(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(7))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// withTextChunk inserts a tEXt chunk right after the IHDR chunk.
func withTextChunk(t *testing.T, data []byte, key, value string) []byte {
	t.Helper()
	const ihdrEnd = 8 + 4 + 4 + 13 + 4

	body := append([]byte(key), 0)
	body = append(body, value...)

	var chunk bytes.Buffer
	require.NoError(t, binary.Write(&chunk, binary.BigEndian, uint32(len(body))))
	typed := append([]byte("tEXt"), body...)
	chunk.Write(typed)
	require.NoError(t, binary.Write(&chunk, binary.BigEndian, crc32.ChecksumIEEE(typed)))

	out := make([]byte, 0, len(data)+chunk.Len())
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunk.Bytes()...)
	return append(out, data[ihdrEnd:]...)
}

// xmpSegment wraps packet in a JPEG APP1 segment.
func xmpSegment(packet string) []byte {
	payload := append([]byte("http://ns.adobe.com/xap/1.0/\x00"), packet...)
	seg := []byte{0xff, 0xe1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

func TestCompareResidue_IdenticalImagesScoreZero(t *testing.T) {
	img := noise(16, 16)

	got := compareResidue(img, img)

	assert.Equal(t, ErrorLevel{Score: 0, MaxDiff: 0, MeanDiff: 0}, got)
}

func TestCompareResidue_SinglePixelDifference(t *testing.T) {
	original := solid(2, 2, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	resaved := solid(2, 2, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	resaved.SetRGBA(1, 1, color.RGBA{R: 105, G: 105, B: 105, A: 255})

	got := compareResidue(original, resaved)

	assert.Equal(t, 100, got.MaxDiff)
	assert.Equal(t, 25.0, got.MeanDiff)
	assert.Equal(t, 37.5, got.Score)
}

func TestCompareResidue_Saturates(t *testing.T) {
	original := solid(1, 1, color.RGBA{A: 255})
	resaved := solid(1, 1, color.RGBA{R: 50, G: 50, B: 50, A: 255})

	got := compareResidue(original, resaved)

	assert.Equal(t, 255, got.MaxDiff)
	assert.Equal(t, 0.0, got.Score)
}

func TestAnalyzeErrorLevel_InRange(t *testing.T) {
	for _, img := range []*image.RGBA{solid(32, 32, color.RGBA{R: 200, G: 10, B: 10, A: 255}), noise(32, 32)} {
		got, err := AnalyzeErrorLevel(img)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, got.Score, 0.0)
		assert.LessOrEqual(t, got.Score, 100.0)
		assert.LessOrEqual(t, got.MaxDiff, 255)
	}
}

func TestAnalyzeSpectrum_ConstantImageScoresZero(t *testing.T) {
	got := AnalyzeSpectrum(solid(32, 32, color.RGBA{R: 128, G: 128, B: 128, A: 255}))

	assert.Equal(t, 0.0, got.Score)
	assert.Less(t, got.Mean, 0.0)
}

func TestAnalyzeSpectrum_NoiseInRange(t *testing.T) {
	got := AnalyzeSpectrum(noise(32, 32))

	assert.Greater(t, got.Score, 0.0)
	assert.LessOrEqual(t, got.Score, 100.0)
	assert.Greater(t, got.Mean, 0.0)
}

func TestAnalyzeSpectrum_ShrinksLargeImages(t *testing.T) {
	img := solid(2048, 8, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	small := shrink(img, maxSpectralSide)

	assert.Equal(t, 1024, small.Bounds().Dx())
	assert.Equal(t, 4, small.Bounds().Dy())
}

func TestShrink_SmoothSides(t *testing.T) {
	small := shrink(noise(1021, 7), maxSpectralSide)

	assert.Equal(t, 1000, small.Bounds().Dx())
	assert.Equal(t, 6, small.Bounds().Dy())

	img := noise(30, 16)
	assert.Same(t, img, shrink(img, maxSpectralSide))
}

func TestSmoothFloor(t *testing.T) {
	tests := map[int]int{1: 1, 7: 6, 16: 16, 1021: 1000, 1024: 1024, 0: 1}
	for n, want := range tests {
		assert.Equal(t, want, smoothFloor(n), n)
	}
}

// pngHeader returns a PNG holding only a signature and an IHDR chunk.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 0 // 8-bit grayscale

	typed := append([]byte("IHDR"), ihdr...)
	out := append([]byte{}, pngSignature...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(ihdr)))
	out = append(out, typed...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(typed))
}

func TestDecode_RejectsOversizedDimensions(t *testing.T) {
	_, _, err := Decode(pngHeader(30000, 30000))

	assert.ErrorIs(t, err, ErrUndecodable)
	assert.Contains(t, err.Error(), "pixel limit")
}

func TestDecode_Errors(t *testing.T) {
	_, _, err := Decode(nil)
	assert.ErrorIs(t, err, ErrUndecodable)

	_, _, err = Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestDecode_DropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0x40})

	img, format, err := Decode(encodePNG(t, src))
	require.NoError(t, err)

	assert.Equal(t, "png", format)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 0xff}, img.RGBAAt(0, 0))
}

func TestScanMetadata_PNGText(t *testing.T) {
	base := encodePNG(t, solid(4, 4, color.RGBA{A: 255}))

	tests := []struct {
		name      string
		key       string
		value     string
		software  string
		generated bool
		edited    bool
	}{
		{"editor", "Software", "Adobe Photoshop 25.0", "Adobe Photoshop 25.0", false, true},
		{"generator", "parameters", "Midjourney v6 --ar 16:9", "", true, false},
		{"unrelated", "Comment", "holiday snapshot", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := withTextChunk(t, base, tt.key, tt.value)

			got := ScanMetadata(data, nil)

			assert.Equal(t, tt.software, got.Software)
			assert.Equal(t, tt.generated, got.IsAIGenerated)
			assert.Equal(t, tt.edited, got.IsEdited)
			assert.Contains(t, got.Raw, tt.key+": "+tt.value)
		})
	}
}

func TestScanMetadata_XMPCreatorTool(t *testing.T) {
	base := encodePNG(t, solid(4, 4, color.RGBA{A: 255}))
	packet := `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:Description xmp:CreatorTool="GIMP 2.10"/></x:xmpmeta>`

	got := ScanMetadata(withTextChunk(t, base, "XML:com.adobe.xmp", packet), nil)

	assert.Equal(t, "GIMP 2.10", got.Software)
	assert.True(t, got.IsEdited)
	assert.Contains(t, got.Raw, "XMP:CreatorTool: GIMP 2.10")
}

func TestScanMetadata_XMPHistoryAndSourceType(t *testing.T) {
	base := encodePNG(t, solid(4, 4, color.RGBA{A: 255}))
	packet := `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF><rdf:Description
		xmlns:stEvt="http://ns.adobe.com/xap/1.0/sType/ResourceEvent#"
		xmlns:Iptc4xmpExt="http://iptc.org/std/Iptc4xmpExt/2008-02-29/">
		<Iptc4xmpExt:DigitalSourceType>http://cv.iptc.org/newscodes/digitalsourcetype/trainedAlgorithmicMedia</Iptc4xmpExt:DigitalSourceType>
		<xmpMM:History><rdf:Seq><rdf:li stEvt:action="saved" stEvt:softwareAgent="Adobe Lightroom 7.0"/></rdf:Seq></xmpMM:History>
		</rdf:Description></rdf:RDF></x:xmpmeta>`

	got := ScanMetadata(withTextChunk(t, base, "XML:com.adobe.xmp", packet), nil)

	assert.Equal(t, "Adobe Lightroom 7.0", got.Software)
	assert.True(t, got.IsEdited)
	assert.True(t, got.IsAIGenerated)
}

func TestScanMetadata_XMPNamespacesAreNotSignatures(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	jpg := buf.Bytes()

	// Camera software declares the photoshop namespace for IPTC dates.
	packet := `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
		`<rdf:Description xmlns:photoshop="http://ns.adobe.com/photoshop/1.0/" photoshop:DateCreated="2024-05-01T10:00:00"/>` +
		`</rdf:RDF></x:xmpmeta>`
	data := append(append(append([]byte{}, jpg[:2]...), xmpSegment(packet)...), jpg[2:]...)

	got := ScanMetadata(data, nil)

	assert.False(t, got.IsEdited)
	assert.False(t, got.IsAIGenerated)
	assert.Empty(t, got.Software)
}

func TestScanMetadata_NoMetadata(t *testing.T) {
	got := ScanMetadata([]byte("garbage"), nil)

	assert.Equal(t, Metadata{}, got)
}

func TestParseSignatures(t *testing.T) {
	s, err := ParseSignatures([]byte("generators: [dall-e]\neditors: [paint.net]\n"))
	require.NoError(t, err)
	assert.True(t, match("Made with DALL-E 3", s.Generators))
	assert.True(t, match("paint.net 5", s.Editors))

	_, err = ParseSignatures([]byte("generators: []"))
	assert.Error(t, err)

	_, err = ParseSignatures([]byte("generators: [unclosed"))
	assert.Error(t, err)
}

func TestAnalyzer_Analyze(t *testing.T) {
	data := withTextChunk(t, encodePNG(t, noise(32, 32)), "Software", "Stable Diffusion")

	got, err := NewAnalyzer(nil).Analyze(data)
	require.NoError(t, err)

	assert.True(t, got.IsAIGenerated)
	assert.Equal(t, "Stable Diffusion", got.Software)
	assert.Greater(t, got.GANScore, 0.0)
	assert.LessOrEqual(t, got.ELAScore, 100.0)
}

func TestAnalyzer_Undecodable(t *testing.T) {
	_, err := NewAnalyzer(nil).Analyze([]byte{0x01, 0x02})

	assert.ErrorIs(t, err, ErrUndecodable)
}
