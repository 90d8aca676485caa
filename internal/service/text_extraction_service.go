package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go-text-extractor/internal/config"
	apperrors "go-text-extractor/internal/errors"
	"go-text-extractor/internal/logger"
	"go-text-extractor/internal/observer"
	"go-text-extractor/internal/ocr"
	"go-text-extractor/internal/storage"
	"go-text-extractor/pkg/models"
	"go-text-extractor/pkg/validation"
)

// expectedTextField is the optional form field holding reference text for accuracy scoring
const expectedTextField = "expected_text"

const maxExpectedTextSize = 64 * 1024

// State is the position of one request in the extraction pipeline
type State string

const (
	StateReceived    State = "received"
	StateValidated   State = "validated"
	StatePersisted   State = "persisted"
	StateRecognizing State = "recognizing"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// TextExtractionService turns one multipart upload into extracted text
type TextExtractionService interface {
	// Extract runs the whole pipeline. The staged image is removed before
	// Extract returns, whatever the outcome. mr may be nil when the request
	// carried no multipart body.
	Extract(ctx context.Context, requestID string, mr *multipart.Reader) (*models.TextResponse, error)
}

// Options are the per-deployment pipeline settings
type Options struct {
	Field       string
	Language    string
	MaxFileSize int64
}

// OptionsFromConfig extracts pipeline options from the server configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Field:       cfg.UploadField,
		Language:    cfg.OCRLanguage,
		MaxFileSize: cfg.MaxFileSize,
	}
}

type textExtractionService struct {
	stager     storage.Stager
	validator  *validation.UploadValidator
	recognizer ocr.Recognizer
	events     *observer.EventPublisher
	opts       Options
}

// NewTextExtractionService creates the extraction pipeline. events may be nil.
func NewTextExtractionService(
	stager storage.Stager,
	validator *validation.UploadValidator,
	recognizer ocr.Recognizer,
	events *observer.EventPublisher,
	opts Options,
) TextExtractionService {
	return &textExtractionService{
		stager:     stager,
		validator:  validator,
		recognizer: recognizer,
		events:     events,
		opts:       opts,
	}
}

// upload is what the receive step hands to recognition
type upload struct {
	file         *models.UploadedFile
	expectedText *string
}

// extraction tracks a single request through the pipeline
type extraction struct {
	requestID string
	state     State
	log       *logrus.Entry
}

func (e *extraction) transition(to State) {
	e.log.WithFields(logrus.Fields{"from": e.state, "to": to}).Debug("Pipeline state change")
	e.state = to
}

func (s *textExtractionService) Extract(ctx context.Context, requestID string, mr *multipart.Reader) (*models.TextResponse, error) {
	x := &extraction{
		requestID: requestID,
		state:     StateReceived,
		log:       logger.WithField("request_id", requestID),
	}

	up, err := s.receive(ctx, x, mr)
	if err != nil {
		x.transition(StateFailed)
		return nil, err
	}
	defer s.release(ctx, x, up.file)

	resp, err := s.recognize(ctx, x, up)
	if err != nil {
		x.transition(StateFailed)
		return nil, err
	}
	x.transition(StateCompleted)
	return resp, nil
}

// receive walks the multipart body, staging exactly one image under the
// configured field. Any failure leaves nothing on disk.
func (s *textExtractionService) receive(ctx context.Context, x *extraction, mr *multipart.Reader) (_ *upload, err error) {
	up := &upload{}
	defer func() {
		if err != nil && up.file != nil {
			s.release(ctx, x, up.file)
		}
	}()

	if mr == nil {
		return nil, apperrors.NewValidationError(apperrors.ErrNoImage.Error(), apperrors.ErrNoImage)
	}

	for {
		part, perr := mr.NextPart()
		if errors.Is(perr, io.EOF) {
			break
		}
		if perr != nil {
			return nil, uploadError(perr)
		}

		err = s.receivePart(ctx, x, up, part)
		part.Close()
		if err != nil {
			return nil, err
		}
	}

	if up.file == nil {
		return nil, apperrors.NewValidationError(apperrors.ErrNoImage.Error(), apperrors.ErrNoImage)
	}
	return up, nil
}

func (s *textExtractionService) receivePart(ctx context.Context, x *extraction, up *upload, part *multipart.Part) error {
	field := part.FormName()

	// plain form value
	if part.FileName() == "" {
		if field == expectedTextField {
			data, err := io.ReadAll(io.LimitReader(part, maxExpectedTextSize))
			if err != nil {
				return uploadError(err)
			}
			text := string(data)
			up.expectedText = &text
		}
		return nil
	}

	// only one file, and only under the image field
	if field != s.opts.Field || up.file != nil {
		return apperrors.NewUploadError(apperrors.ErrUnexpectedField)
	}

	declared := part.Header.Get("Content-Type")
	if err := s.validator.ValidateContentType(declared); err != nil {
		return apperrors.NewUploadError(err)
	}
	body, detected, err := s.validator.Inspect(part)
	if err != nil {
		return uploadError(err)
	}
	x.transition(StateValidated)

	file, err := s.stager.Stage(part.FileName(), body, s.opts.MaxFileSize)
	if err != nil {
		return uploadError(err)
	}
	file.MimeType = declared
	file.DetectedType = detected
	up.file = file
	x.transition(StatePersisted)

	s.events.NotifyObservers(ctx, observer.Event{
		EventType: observer.UploadStaged,
		RequestID: x.requestID,
		File:      file.OriginalName,
		Metadata: map[string]interface{}{
			"size_bytes":    file.SizeBytes,
			"mime_type":     file.MimeType,
			"detected_type": file.DetectedType,
		},
	})
	return nil
}

func (s *textExtractionService) recognize(ctx context.Context, x *extraction, up *upload) (*models.TextResponse, error) {
	x.transition(StateRecognizing)
	start := time.Now()
	s.events.NotifyObservers(ctx, observer.Event{
		EventType: observer.RecognitionStarted,
		RequestID: x.requestID,
		File:      up.file.OriginalName,
		Metadata:  map[string]interface{}{"language": s.opts.Language, "engine": s.recognizer.Name()},
	})

	progress := func(status string, p float64) {
		s.events.NotifyObservers(ctx, observer.Event{
			EventType: observer.RecognitionProgress,
			RequestID: x.requestID,
			File:      up.file.OriginalName,
			Status:    status,
			Progress:  p,
		})
	}

	result, err := s.recognizer.Recognize(ctx, up.file.StoredPath, s.opts.Language, progress)
	if err == nil && ctx.Err() != nil {
		// client went away while the engine was running; the text has nobody to go to
		err = ctx.Err()
	}
	if err != nil {
		s.events.NotifyObservers(ctx, observer.Event{
			EventType:      observer.RecognitionFailed,
			RequestID:      x.requestID,
			File:           up.file.OriginalName,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, recognitionError(err)
	}

	s.events.NotifyObservers(ctx, observer.Event{
		EventType:      observer.RecognitionCompleted,
		RequestID:      x.requestID,
		File:           up.file.OriginalName,
		ProcessingTime: time.Since(start),
		Metadata:       map[string]interface{}{"text_length": len(result.ExtractedText)},
	})

	resp := &models.TextResponse{Text: result.ExtractedText}
	if up.expectedText != nil {
		report := ocr.ScoreAccuracy(*up.expectedText, result.ExtractedText)
		resp.Accuracy = &report
	}
	return resp, nil
}

// release deletes the staged image. It runs on every exit path once a file
// has been staged; a failed delete is logged, never returned.
func (s *textExtractionService) release(ctx context.Context, x *extraction, file *models.UploadedFile) {
	if err := s.stager.Release(file); err != nil {
		x.log.WithError(err).WithField("path", file.StoredPath).Error("Failed to remove staged file")
		return
	}
	s.events.NotifyObservers(ctx, observer.Event{
		EventType: observer.UploadReleased,
		RequestID: x.requestID,
		File:      file.OriginalName,
	})
}

func uploadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return apperrors.NewUploadError(apperrors.ErrRequestTooLarge)
	case errors.Is(err, apperrors.ErrFileTooLarge),
		errors.Is(err, apperrors.ErrNotImage),
		errors.Is(err, apperrors.ErrUnexpectedField):
		return apperrors.NewUploadError(err)
	case errors.Is(err, io.ErrUnexpectedEOF) || strings.Contains(err.Error(), "multipart"):
		return apperrors.NewUploadError(fmt.Errorf("Malformed multipart body: %w", err))
	default:
		return apperrors.NewInternalError(err.Error(), err)
	}
}

func recognitionError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ocr.ErrRecognitionTimeout):
		return apperrors.NewTimeoutError("Failed to extract text", err)
	case errors.Is(err, context.DeadlineExceeded):
		// request deadline rather than the engine's own
		return apperrors.NewTimeoutError("Failed to extract text", ocr.ErrRecognitionTimeout)
	default:
		return apperrors.NewProcessingError("Failed to extract text", err)
	}
}
