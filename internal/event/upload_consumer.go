package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"monitoring-service/internal/models"
	"monitoring-service/internal/worker"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JobSubmitter is the part of the working pool the consumer hands work to.
type JobSubmitter interface {
	SubmitPayload(ctx context.Context, payload worker.JobPayload) error
}

// UploadConsumer turns upload_received messages into process_upload jobs.
type UploadConsumer struct {
	conn *RabbitMQConnection
	pool JobSubmitter
}

func NewUploadConsumer(conn *RabbitMQConnection, pool JobSubmitter) *UploadConsumer {
	return &UploadConsumer{conn: conn, pool: pool}
}

func (c *UploadConsumer) Start(ctx context.Context) error {
	msgs, err := c.conn.Channel.Consume(
		UploadReceivedQueue,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", UploadReceivedQueue, err)
	}

	slog.Info("Upload consumer started", "queue", UploadReceivedQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				slog.Info("Upload consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("Upload consumer channel closed")
					return
				}
				c.processMessage(ctx, msg)
			}
		}
	}()
	return nil
}

func (c *UploadConsumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	if err := c.handle(ctx, msg.Body); err != nil {
		var malformed *malformedMessageError
		if errors.As(err, &malformed) {
			slog.Error("Dropping malformed upload event", "error", err)
			msg.Nack(false, false)
			return
		}
		slog.Error("Failed to queue upload job, requeueing", "error", err)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}

func (c *UploadConsumer) handle(ctx context.Context, body []byte) error {
	var evt models.UploadReceivedEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return &malformedMessageError{err: err}
	}
	slog.Info("Received upload event", "upload_id", evt.UploadID, "file_type", evt.FileType)
	return c.pool.SubmitPayload(ctx, ProcessUploadPayload(evt))
}

// ProcessUploadPayload builds the pool job for an upload event.
func ProcessUploadPayload(evt models.UploadReceivedEvent) worker.JobPayload {
	return worker.JobPayload{
		Type:       worker.JobTypeProcessUpload,
		Params:     map[string]any{"upload_id": evt.UploadID.String()},
		MaxRetries: uploadJobMaxRetries,
	}
}

type malformedMessageError struct {
	err error
}

func (e *malformedMessageError) Error() string {
	return "malformed message: " + e.err.Error()
}
