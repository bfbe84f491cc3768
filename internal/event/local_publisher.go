package event

import (
	"context"
	"log/slog"

	"monitoring-service/internal/models"
)

// LocalPublisher dispatches events in-process when RabbitMQ is not available.
// Uploads go straight to the working pool; report events are only logged.
type LocalPublisher struct {
	pool JobSubmitter
}

func NewLocalPublisher(pool JobSubmitter) *LocalPublisher {
	return &LocalPublisher{pool: pool}
}

func (p *LocalPublisher) PublishUploadReceived(ctx context.Context, evt models.UploadReceivedEvent) error {
	return p.pool.SubmitPayload(ctx, ProcessUploadPayload(evt))
}

func (p *LocalPublisher) PublishReportGenerated(_ context.Context, evt models.ReportGeneratedEvent) error {
	slog.Info("Report generated", "report_id", evt.ReportID, "file_key", evt.FileKey)
	return nil
}
