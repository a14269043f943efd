package imagecheck

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/truthlens/app/forensics"
	"github.com/lysyi3m/truthlens/app/llm"
)

type recordingModel struct {
	reply   string
	err     error
	prompts []string
}

func (m *recordingModel) Infer(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

type fixedOCR string

func (f fixedOCR) Extract(context.Context, []byte) string { return string(f) }

func pngWithSoftware(t *testing.T, software string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 120, G: 160, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data := buf.Bytes()

	if software == "" {
		return data
	}

	typed := append([]byte("tEXt"), append([]byte("Software\x00"), software...)...)
	var chunk bytes.Buffer
	require.NoError(t, binary.Write(&chunk, binary.BigEndian, uint32(len(typed)-4)))
	chunk.Write(typed)
	require.NoError(t, binary.Write(&chunk, binary.BigEndian, crc32.ChecksumIEEE(typed)))

	const ihdrEnd = 33
	out := append([]byte{}, data[:ihdrEnd]...)
	out = append(out, chunk.Bytes()...)
	return append(out, data[ihdrEnd:]...)
}

func TestRun_GuardOverridesRealForEditedImage(t *testing.T) {
	model := &recordingModel{reply: "Verdict: REAL\nConfidence: 80\nReport: Looks like an ordinary photo."}

	res, err := New(model, nil, fixedOCR("SALE 50% OFF")).Run(context.Background(), Input{Image: pngWithSoftware(t, "Adobe Photoshop 2024")})
	require.NoError(t, err)

	assert.Equal(t, Manipulated, res.Verdict)
	assert.True(t, res.IsMisinformation)
	assert.Equal(t, 80.0, res.ConfidenceScore)
	assert.NotNil(t, res.Citations)
	assert.Empty(t, res.Citations)
	assert.Equal(t, "SALE 50% OFF", res.OCRText)
	require.NotNil(t, res.Signals)
	assert.True(t, res.Signals.IsEdited)
	assert.Equal(t, "Adobe Photoshop 2024", res.Signals.Software)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], `"SALE 50% OFF"`)
	assert.Contains(t, model.prompts[0], "- Software: Adobe Photoshop 2024")
	assert.Contains(t, model.prompts[0], "- Edited Keywords Found: true")
}

func TestRun_CleanImage(t *testing.T) {
	model := &recordingModel{reply: "Verdict: REAL\nConfidence: 70\nReport: Nothing suggests the photo was changed."}

	res, err := New(model, nil, nil).Run(context.Background(), Input{Image: pngWithSoftware(t, "")})
	require.NoError(t, err)

	assert.Equal(t, Real, res.Verdict)
	assert.False(t, res.IsMisinformation)
	assert.Equal(t, "Nothing suggests the photo was changed.", res.Report)
	assert.Empty(t, res.Warnings)
	assert.Contains(t, model.prompts[0], "- Software: N/A")
}

func TestRun_Undecodable(t *testing.T) {
	model := &recordingModel{reply: "Verdict: REAL"}

	res, err := New(model, nil, nil).Run(context.Background(), Input{Image: []byte("not an image")})
	require.NoError(t, err)

	assert.Equal(t, Unknown, res.Verdict)
	assert.Equal(t, 0.0, res.ConfidenceScore)
	assert.Equal(t, undecodableReport, res.Report)
	assert.Nil(t, res.Signals)
	assert.Empty(t, model.prompts)
}

func TestRun_ModelFailure(t *testing.T) {
	model := &recordingModel{err: errors.New("timeout")}

	_, err := New(model, nil, nil).Run(context.Background(), Input{Image: pngWithSoftware(t, "")})

	assert.ErrorContains(t, err, "timeout")
}

func TestParseFusion(t *testing.T) {
	f := parseFusion("**Verdict:** FAKE\n**Confidence:** 91%\n**Report:** The picture shows patterns typical of AI generation.")

	assert.Equal(t, Fake, f.Verdict)
	assert.Equal(t, 91.0, f.Confidence)
	assert.Equal(t, "The picture shows patterns typical of AI generation.", f.Report)
	assert.Empty(t, f.Warnings)
}

func TestParseFusion_Malformed(t *testing.T) {
	f := parseFusion("I cannot tell what this is.")

	assert.Equal(t, Unknown, f.Verdict)
	assert.Equal(t, 50.0, f.Confidence)
	assert.Equal(t, "I cannot tell what this is.", f.Report)
	require.Len(t, f.Warnings, 2)
	assert.Contains(t, f.Warnings[0], llm.ErrMalformedOutput.Error())
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		signals forensics.Signals
		want    Verdict
	}{
		{"high error level and editor", Real, forensics.Signals{ELAScore: 85, IsEdited: true}, Manipulated},
		{"high error level only", Real, forensics.Signals{ELAScore: 50.5}, Manipulated},
		{"generator signature", Real, forensics.Signals{IsAIGenerated: true, IsEdited: true}, Fake},
		{"no signs", Real, forensics.Signals{ELAScore: 50}, Real},
		{"non-real untouched", Unknown, forensics.Signals{ELAScore: 99}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := guard(Fusion{Verdict: tt.verdict, Report: "Report."}, tt.signals)

			assert.Equal(t, tt.want, got.Verdict)
			if tt.want != tt.verdict {
				assert.True(t, strings.HasPrefix(got.Report, "Report. "))
				assert.Len(t, got.Warnings, 1)
			}
		})
	}
}
