package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-text-extractor/pkg/models"
)

// Event is a side-effect-only notification emitted while a request moves
// through the extraction pipeline.
type Event struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	File           string                 `json:"file,omitempty"`
	Status         string                 `json:"status,omitempty"`
	Progress       float64                `json:"progress,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// UploadStaged when the uploaded image has been written to the staging area
	UploadStaged EventType = "upload_staged"
	// UploadReleased when the staged image has been removed
	UploadReleased EventType = "upload_released"
	// RecognitionStarted when the engine is invoked
	RecognitionStarted EventType = "recognition_started"
	// RecognitionProgress for intermediate engine status
	RecognitionProgress EventType = "recognition_progress"
	// RecognitionCompleted when the engine returned text
	RecognitionCompleted EventType = "recognition_completed"
	// RecognitionFailed when the engine returned an error or timed out
	RecognitionFailed EventType = "recognition_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event Event)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event Event)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"request_id": event.RequestID,
	}
	if event.File != "" {
		fields["file"] = event.File
	}
	if event.Status != "" {
		fields["status"] = event.Status
		fields["progress"] = event.Progress
	}
	if event.ProcessingTime > 0 {
		fields["processing_time_ms"] = event.ProcessingTime.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case RecognitionStarted:
		entry.Info("Text recognition started")
	case RecognitionCompleted:
		entry.Info("Text recognition completed")
	case RecognitionFailed:
		// the request failure itself is logged once by the transport layer
		entry.Warn("Text recognition failed")
	case RecognitionProgress, UploadStaged, UploadReleased:
		entry.Debug("Pipeline event")
	default:
		entry.Info("Pipeline event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from pipeline events
type MetricsObserver struct {
	mu                  sync.RWMutex
	started             int64
	completed           int64
	failed              int64
	staged              int64
	released            int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles pipeline events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case RecognitionStarted:
		o.started++
	case RecognitionCompleted:
		o.completed++
		o.totalProcessingTime += event.ProcessingTime
	case RecognitionFailed:
		o.failed++
	case UploadStaged:
		o.staged++
	case UploadReleased:
		o.released++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() models.PipelineMetrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var avg time.Duration
	if o.completed > 0 {
		avg = o.totalProcessingTime / time.Duration(o.completed)
	}

	return models.PipelineMetrics{
		Started:           o.started,
		Completed:         o.completed,
		Failed:            o.failed,
		FilesStaged:       o.staged,
		FilesReleased:     o.released,
		AvgProcessingTime: float64(avg) / float64(time.Millisecond),
	}
}

// EventPublisher implements the Subject interface. Observers are notified
// synchronously in subscription order so counters are consistent by the time
// a response is written.
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. A nil publisher is a
// valid no-op sink.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			// Log panic but don't crash the application
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
