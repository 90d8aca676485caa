package models

import "time"

// UploadedFile is an image staged on local disk for the lifetime of a single
// request. It is removed before the response is written.
type UploadedFile struct {
	OriginalName string    `json:"original_name"`
	StoredPath   string    `json:"stored_path"`
	MimeType     string    `json:"mime_type"`
	DetectedType string    `json:"detected_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecognitionResult is what the OCR engine produced for one image
type RecognitionResult struct {
	ExtractedText string        `json:"extracted_text"`
	Engine        string        `json:"engine,omitempty"`
	Language      string        `json:"language,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// AccuracyReport compares extracted text with a caller-supplied reference
type AccuracyReport struct {
	ExpectedText string  `json:"expected_text"`
	CER          float64 `json:"cer"`
	WER          float64 `json:"wer"`
	MatchScore   float64 `json:"match_score"`
}

// PipelineMetrics are the aggregated counters kept by the metrics observer
type PipelineMetrics struct {
	Started           int64   `json:"recognitions_started"`
	Completed         int64   `json:"recognitions_completed"`
	Failed            int64   `json:"recognitions_failed"`
	FilesStaged       int64   `json:"files_staged"`
	FilesReleased     int64   `json:"files_released"`
	AvgProcessingTime float64 `json:"avg_processing_time_ms"`
}

// WorkerPoolStats is a snapshot of the OCR worker pool
type WorkerPoolStats struct {
	Workers       int   `json:"workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	ActiveWorkers int64 `json:"active_workers"`
}
