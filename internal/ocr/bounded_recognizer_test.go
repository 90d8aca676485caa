package ocr

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go-text-extractor/pkg/models"
)

type stubRecognizer struct {
	delay   time.Duration
	text    string
	err     error
	calls   atomic.Int32
	release chan struct{}
}

func (s *stubRecognizer) Name() string { return "stub" }

func (s *stubRecognizer) Recognize(ctx context.Context, path, language string, onProgress ProgressFunc) (models.RecognitionResult, error) {
	s.calls.Add(1)
	onProgress.Report("recognizing text", 0.5)
	if s.release != nil {
		<-s.release
	}
	time.Sleep(s.delay)
	if s.err != nil {
		return models.RecognitionResult{}, s.err
	}
	return models.RecognitionResult{ExtractedText: s.text, Engine: "stub", Language: language}, nil
}

func newTestPool(t *testing.T, workers int) *WorkerPool {
	t.Helper()
	pool := NewWorkerPool(workers)
	pool.Start()
	t.Cleanup(pool.Close)
	return pool
}

func TestBoundedRecognizer_Success(t *testing.T) {
	stub := &stubRecognizer{text: "HELLO\n"}
	var statuses []string
	r := NewBoundedRecognizer(stub, newTestPool(t, 1), time.Second)

	res, err := r.Recognize(context.Background(), "/tmp/x.png", "eng", func(status string, progress float64) {
		statuses = append(statuses, status)
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.ExtractedText != "HELLO\n" || res.Language != "eng" {
		t.Errorf("Unexpected result %+v", res)
	}
	if len(statuses) != 1 {
		t.Errorf("Expected progress to reach the callback, got %v", statuses)
	}
	if r.Name() != "stub" {
		t.Errorf("Expected wrapped engine name, got %s", r.Name())
	}
}

func TestBoundedRecognizer_EngineError(t *testing.T) {
	engineErr := errors.New("Error attempting to read image")
	r := NewBoundedRecognizer(&stubRecognizer{err: engineErr}, newTestPool(t, 1), 0)

	_, err := r.Recognize(context.Background(), "/tmp/x.png", "eng", nil)
	if !errors.Is(err, engineErr) {
		t.Errorf("Expected engine error, got %v", err)
	}
}

func TestBoundedRecognizer_Timeout(t *testing.T) {
	stub := &stubRecognizer{delay: 500 * time.Millisecond, text: "late"}
	r := NewBoundedRecognizer(stub, newTestPool(t, 1), 20*time.Millisecond)

	start := time.Now()
	_, err := r.Recognize(context.Background(), "/tmp/x.png", "eng", nil)
	if !errors.Is(err, ErrRecognitionTimeout) {
		t.Errorf("Expected ErrRecognitionTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("Expected caller to stop waiting at the timeout, took %v", elapsed)
	}
}

func TestBoundedRecognizer_CallerCanceled(t *testing.T) {
	stub := &stubRecognizer{release: make(chan struct{})}
	defer close(stub.release)
	r := NewBoundedRecognizer(stub, newTestPool(t, 1), 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.Recognize(ctx, "/tmp/x.png", "eng", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestBoundedRecognizer_SkipsJobsAlreadyCanceled(t *testing.T) {
	stub := &stubRecognizer{}
	r := NewBoundedRecognizer(stub, newTestPool(t, 1), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Recognize(ctx, "/tmp/x.png", "eng", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := stub.calls.Load(); n != 0 {
		t.Errorf("Expected engine not to run for a canceled request, ran %d times", n)
	}
}

type panickingRecognizer struct{}

func (panickingRecognizer) Name() string { return "broken" }

func (panickingRecognizer) Recognize(ctx context.Context, path, language string, onProgress ProgressFunc) (models.RecognitionResult, error) {
	panic("segfault in engine")
}

func TestBoundedRecognizer_EnginePanic(t *testing.T) {
	pool := newTestPool(t, 1)
	r := NewBoundedRecognizer(panickingRecognizer{}, pool, time.Second)

	_, err := r.Recognize(context.Background(), "/tmp/x.png", "eng", nil)
	if err == nil || err.Error() != "broken engine panic: segfault in engine" {
		t.Fatalf("Expected panic to surface as error, got %v", err)
	}

	// the worker survived and still serves jobs
	if _, err := NewBoundedRecognizer(&stubRecognizer{text: "ok"}, pool, time.Second).
		Recognize(context.Background(), "/tmp/x.png", "eng", nil); err != nil {
		t.Errorf("Expected pool to keep working after a panic, got %v", err)
	}
}
