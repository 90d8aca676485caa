package container

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"go-text-extractor/internal/config"
	"go-text-extractor/internal/logger"
	"go-text-extractor/internal/observer"
	"go-text-extractor/internal/ocr"
	"go-text-extractor/internal/ocr/tesseract"
	"go-text-extractor/internal/service"
	"go-text-extractor/internal/storage"
	"go-text-extractor/internal/transport"
	"go-text-extractor/pkg/validation"
)

// Version is reported on /health
const Version = "1.0.0"

// Container holds all application dependencies
type Container struct {
	config  *config.Config
	pool    *ocr.WorkerPool
	handler http.Handler
}

// NewContainer wires the pipeline against the real Tesseract engine
func NewContainer(cfg *config.Config) (*Container, error) {
	engine := tesseract.New()
	return NewContainerWithEngine(cfg, engine, engine.Name()+" "+engine.Version())
}

// NewContainerWithEngine builds the dependency graph around any recognizer.
// engineLabel is what /health reports.
func NewContainerWithEngine(cfg *config.Config, engine ocr.Recognizer, engineLabel string) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	uploadPath, err := cfg.UploadPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	stager, err := storage.NewLocalStaging(uploadPath)
	if err != nil {
		return nil, err
	}

	pool := ocr.NewWorkerPool(cfg.OCRMaxConcurrency)
	pool.Start()
	recognizer := ocr.NewBoundedRecognizer(engine, pool, cfg.OCRTimeout)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	validator := validation.NewUploadValidatorWithOptions(cfg.VerifyImageContent)
	textExtractionService := service.NewTextExtractionService(stager, validator, recognizer, events, service.OptionsFromConfig(cfg))
	handler := transport.NewHandler(textExtractionService, metrics, transport.HealthInfo{
		Version: Version,
		Engine:  engineLabel,
		Pool:    pool,
	}, cfg)

	logger.WithFields(logrus.Fields{
		"upload_dir":  stager.Dir(),
		"ocr_workers": pool.GetStats().Workers,
		"engine":      engineLabel,
	}).Info("Text extraction pipeline ready")

	return &Container{
		config:  cfg,
		pool:    pool,
		handler: handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close stops the OCR workers and waits for queued recognitions to finish.
// Call it after the HTTP server has drained.
func (c *Container) Close() {
	c.pool.Close()
	c.pool.Wait()
}
