package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-text-extractor/pkg/models"
)

type outcome struct {
	result models.RecognitionResult
	err    error
}

// BoundedRecognizer runs another Recognizer on a worker pool and stops
// waiting for it when the caller's context ends or the timeout elapses. The
// engine call itself cannot be interrupted; its late result is discarded.
type BoundedRecognizer struct {
	next    Recognizer
	pool    *WorkerPool
	timeout time.Duration
}

// NewBoundedRecognizer wraps next. A zero timeout waits for as long as the
// caller's context allows.
func NewBoundedRecognizer(next Recognizer, pool *WorkerPool, timeout time.Duration) *BoundedRecognizer {
	return &BoundedRecognizer{next: next, pool: pool, timeout: timeout}
}

func (b *BoundedRecognizer) Name() string {
	return b.next.Name()
}

func (b *BoundedRecognizer) Recognize(ctx context.Context, path string, language string, onProgress ProgressFunc) (models.RecognitionResult, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	// buffered so an abandoned job never blocks its worker
	done := make(chan outcome, 1)
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%s engine panic: %v", b.next.Name(), r)}
			}
		}()
		if err := ctx.Err(); err != nil {
			done <- outcome{err: err}
			return
		}
		result, err := b.next.Recognize(ctx, path, language, onProgress)
		done <- outcome{result: result, err: err}
	}

	if err := b.pool.SubmitContext(ctx, job); err != nil {
		return models.RecognitionResult{}, classify(err)
	}

	select {
	case o := <-done:
		if o.err != nil {
			return models.RecognitionResult{}, classify(o.err)
		}
		return o.result, nil
	case <-ctx.Done():
		return models.RecognitionResult{}, classify(ctx.Err())
	}
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrRecognitionTimeout
	}
	return err
}
