// Package tesseract provides the gosseract-backed Recognizer. It needs the
// Tesseract and Leptonica libraries at build time.
package tesseract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"go-text-extractor/internal/ocr"
	"go-text-extractor/pkg/models"
)

// Engine implements ocr.Recognizer with one gosseract client per call, so
// concurrent requests never share engine state.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract-backed recognizer
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Version reports the linked Tesseract version
func (e *Engine) Version() string {
	c := e.clientFactory()
	defer c.Close()
	return c.Version()
}

// Recognize performs OCR on the image at path. language accepts a single
// code ("eng") or several joined with '+' ("eng+deu").
func (e *Engine) Recognize(ctx context.Context, path string, language string, onProgress ocr.ProgressFunc) (models.RecognitionResult, error) {
	select {
	case <-ctx.Done():
		return models.RecognitionResult{}, ctx.Err()
	default:
	}

	start := time.Now()
	c := e.clientFactory()
	defer c.Close()

	onProgress.Report("initializing api", 0)
	langs := splitLanguages(language)
	if len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return models.RecognitionResult{}, fmt.Errorf("set language: %w", err)
		}
	}

	onProgress.Report("loading image", 0.25)
	if err := c.SetImage(path); err != nil {
		return models.RecognitionResult{}, fmt.Errorf("set image: %w", err)
	}

	onProgress.Report("recognizing text", 0.5)
	text, err := c.Text()
	if err != nil {
		return models.RecognitionResult{}, fmt.Errorf("recognize text: %w", err)
	}
	onProgress.Report("recognizing text", 1)

	return models.RecognitionResult{
		ExtractedText: text,
		Engine:        e.Name(),
		Language:      language,
		Duration:      time.Since(start),
	}, nil
}

func splitLanguages(language string) []string {
	var langs []string
	for _, l := range strings.Split(language, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}
