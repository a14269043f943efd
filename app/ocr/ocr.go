// Package ocr extracts printed text from images.
package ocr

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Extractor returns the text found in an image, or "" when there is none or
// extraction fails.
type Extractor interface {
	Extract(ctx context.Context, image []byte) string
}

// Nop never finds text.
type Nop struct{}

func (Nop) Extract(context.Context, []byte) string { return "" }

// Tesseract runs the tesseract command line tool, feeding the image on stdin.
type Tesseract struct {
	binary   string
	language string
	timeout  time.Duration
}

var _ Extractor = (*Tesseract)(nil)

func NewTesseract(binary, language string, timeout time.Duration) *Tesseract {
	return &Tesseract{
		binary:   cmp.Or(binary, "tesseract"),
		language: cmp.Or(language, "eng"),
		timeout:  cmp.Or(timeout, 10*time.Second),
	}
}

// Available reports whether the binary can be found.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

func (t *Tesseract) Extract(ctx context.Context, image []byte) string {
	if len(image) == 0 {
		return ""
	}

	text, err := t.run(ctx, image)
	if err != nil {
		slog.Warn("OCR failed", "error", err)
		return ""
	}
	return text
}

func (t *Tesseract) run(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout", "-l", t.language)
	cmd.Stdin = bytes.NewReader(image)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", t.binary, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}
