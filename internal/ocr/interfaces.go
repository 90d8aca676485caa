// Package ocr defines the contract between the extraction pipeline and an
// OCR engine, plus the engine-independent pieces around it: bounded
// concurrency, timeouts, cancellation and accuracy scoring.
package ocr

import (
	"context"
	"errors"

	"go-text-extractor/pkg/models"
)

// ErrRecognitionTimeout is returned when the engine does not finish in time
var ErrRecognitionTimeout = errors.New("text recognition timed out")

// ProgressFunc receives engine status updates. It must not influence the
// outcome of a recognition; a nil ProgressFunc is allowed.
type ProgressFunc func(status string, progress float64)

// Recognizer extracts text from an image file on local disk
type Recognizer interface {
	// Name identifies the engine, e.g. "tesseract"
	Name() string

	// Recognize runs OCR on the image at path using the given language hint
	Recognize(ctx context.Context, path string, language string, onProgress ProgressFunc) (models.RecognitionResult, error)
}

// Report calls fn if it is set
func (fn ProgressFunc) Report(status string, progress float64) {
	if fn != nil {
		fn(status, progress)
	}
}
