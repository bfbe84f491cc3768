package worker

import (
	"context"
	"errors"
)

type Job func(ctx context.Context) error

// JobPayload names a registered job type together with its parameters.
type JobPayload struct {
	JobID      string         `json:"job_id"`
	Type       string         `json:"type"`
	Params     map[string]any `json:"params"`
	MaxRetries int            `json:"max_retries"`
	RetryCount int            `json:"retry_count"`
}

// JobFunc is the handler registered for a job type.
type JobFunc func(ctx context.Context, params map[string]any) error

const (
	JobTypeProcessUpload      = "process_upload"
	JobTypeRefreshPredictions = "refresh_predictions"
)

var (
	ErrPoolStopped    = errors.New("working pool is stopped")
	ErrUnknownJobType = errors.New("unknown job type")
)
