// Package testutil holds fixtures shared by the pipeline, handler and engine tests.
package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go-text-extractor/internal/ocr"
	"go-text-extractor/pkg/models"
)

// MockRecognizer implements ocr.Recognizer without a native engine. It
// records every call and can be told to fail, stall or return fixed text.
type MockRecognizer struct {
	mu        sync.Mutex
	Text      string
	Err       error
	Delay     time.Duration
	Panic     bool
	calls     []RecognizeCall
	sawFileOK []bool
}

// RecognizeCall captures the arguments of one Recognize call
type RecognizeCall struct {
	Path     string
	Language string
}

// NewMockRecognizer returns a recognizer that answers with text
func NewMockRecognizer(text string) *MockRecognizer {
	return &MockRecognizer{Text: text}
}

func (m *MockRecognizer) Name() string { return "mock" }

func (m *MockRecognizer) Recognize(ctx context.Context, path string, language string, onProgress ocr.ProgressFunc) (models.RecognitionResult, error) {
	_, statErr := os.Stat(path)

	m.mu.Lock()
	m.calls = append(m.calls, RecognizeCall{Path: path, Language: language})
	m.sawFileOK = append(m.sawFileOK, statErr == nil)
	text, err, delay, shouldPanic := m.Text, m.Err, m.Delay, m.Panic
	m.mu.Unlock()

	if shouldPanic {
		panic("engine crashed")
	}

	onProgress.Report("recognizing text", 0)
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return models.RecognitionResult{}, ctx.Err()
		}
	}
	if err != nil {
		return models.RecognitionResult{}, err
	}
	if statErr != nil {
		return models.RecognitionResult{}, errors.New("Error attempting to read image")
	}
	onProgress.Report("recognizing text", 1)

	return models.RecognitionResult{
		ExtractedText: text,
		Engine:        m.Name(),
		Language:      language,
		Duration:      delay,
	}, nil
}

// Calls returns a copy of the recorded calls
func (m *MockRecognizer) Calls() []RecognizeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecognizeCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// SawStagedFile reports whether the i-th call found its image on disk
func (m *MockRecognizer) SawStagedFile(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return i < len(m.sawFileOK) && m.sawFileOK[i]
}
