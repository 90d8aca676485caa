package models

// TextResponse is the success body of POST /extract-text. Accuracy is only
// present when the client supplied an expected_text field.
type TextResponse struct {
	Text     string          `json:"text"`
	Accuracy *AccuracyReport `json:"accuracy,omitempty"`
}

// ErrorResponse is the body written by the route-level failure surface
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// FallbackErrorResponse is the body written by the global error handler
type FallbackErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse reports liveness, the OCR engine in use and pipeline counters
type HealthResponse struct {
	Status  string           `json:"status"`
	Version string           `json:"version"`
	Engine  string           `json:"engine"`
	Time    string           `json:"time"`
	Stats   PipelineMetrics  `json:"stats"`
	Pool    *WorkerPoolStats `json:"pool,omitempty"`
}
