package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-text-extractor/internal/config"
	apperrors "go-text-extractor/internal/errors"
	"go-text-extractor/internal/logger"
	"go-text-extractor/internal/service"
	"go-text-extractor/pkg/models"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	fallbackErrorMessage = "Something went wrong!"
)

// MetricsSource supplies the pipeline counters shown on /health
type MetricsSource interface {
	GetMetrics() models.PipelineMetrics
}

// PoolStatsSource supplies the OCR worker pool counters shown on /health
type PoolStatsSource interface {
	GetStats() models.WorkerPoolStats
}

// HealthInfo describes the deployment on /health. Pool may be nil.
type HealthInfo struct {
	Version string
	Engine  string
	Pool    PoolStatsSource
}

func NewHandler(svc service.TextExtractionService, metrics MetricsSource, info HealthInfo, cfg *config.Config) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		requestID(),
		requestLogger(),
		gin.CustomRecovery(recoverPanic),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", requestIDHeader},
			ExposeHeaders:   []string{requestIDHeader},
			MaxAge:          12 * time.Hour,
		}),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck(metrics, info))
	r.POST("/extract-text", extractText(svc, cfg))

	return r
}

func extractText(svc service.TextExtractionService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		id := c.GetString(requestIDKey)

		ctx := c.Request.Context()
		if cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
		}

		log := logger.WithFields(logrus.Fields{
			"request_id": id,
			"ip":         c.ClientIP(),
		})
		log.Info("Processing text extraction request")

		// a request that is not multipart simply carries no image
		mr, err := c.Request.MultipartReader()
		if err != nil {
			if !errors.Is(err, http.ErrNotMultipart) {
				_ = c.Error(apperrors.NewUploadError(fmt.Errorf("Malformed multipart body: %w", err)))
				return
			}
			log.WithError(err).Debug("Request has no multipart body")
			mr = nil
		}

		resp, err := svc.Extract(ctx, id, mr)

		if clientErr := c.Request.Context().Err(); clientErr != nil {
			log.WithError(clientErr).Warn("Client disconnected before the response was written")
			c.Abort()
			return
		}

		if err != nil {
			var appErr *apperrors.AppError
			switch {
			case apperrors.IsType(err, apperrors.ErrorTypeValidation):
				respondError(c, http.StatusBadRequest, models.ErrorResponse{Error: apperrors.PublicMessage(err)}, err)
			case errors.As(err, &appErr) &&
				(appErr.Type == apperrors.ErrorTypeProcessing || appErr.Type == apperrors.ErrorTypeTimeout):
				respondError(c, appErr.StatusCode, models.ErrorResponse{Error: appErr.Message, Details: appErr.Details}, err)
			default:
				// upload rejections and anything unexpected go to the global handler
				_ = c.Error(err)
			}
			return
		}

		log.WithFields(logrus.Fields{
			"processing_time_ms": time.Since(startTime).Milliseconds(),
			"text_length":        len(resp.Text),
		}).Info("Text extraction completed successfully")

		c.JSON(http.StatusOK, resp)
	}
}

func healthCheck(metrics MetricsSource, info HealthInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "available",
			Version: info.Version,
			Engine:  info.Engine,
			Time:    time.Now().UTC().Format(time.RFC3339),
		}
		if metrics != nil {
			resp.Stats = metrics.GetMetrics()
		}
		if info.Pool != nil {
			stats := info.Pool.GetStats()
			resp.Pool = &stats
		}
		c.JSON(http.StatusOK, resp)
	}
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"request_id":  c.GetString(requestIDKey),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"user_agent":  c.Request.UserAgent(),
		}).Info("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// errorHandler is the global failure surface. It answers for errors the
// route attached to the context but did not respond to itself.
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		writeFallback(c, apperrors.PublicMessage(err), err)
	}
}

func recoverPanic(c *gin.Context, recovered any) {
	err := fmt.Errorf("panic: %v", recovered)
	writeFallback(c, fmt.Sprint(recovered), err)
}

func writeFallback(c *gin.Context, message string, err error) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"ip":         c.ClientIP(),
	})
	if c.Writer.Written() {
		entry.Error("Request failed after the response was written")
		c.Abort()
		return
	}
	entry.WithField("status_code", http.StatusInternalServerError).Error("Request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, models.FallbackErrorResponse{
		Error:   fallbackErrorMessage,
		Message: message,
	})
}

func respondError(c *gin.Context, code int, body models.ErrorResponse, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.GetString(requestIDKey),
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(code, body)
}
