package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"monitoring-service/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channelPublisher is the part of *amqp.Channel the publisher uses.
type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends domain events to their RabbitMQ queues.
type Publisher struct {
	channel channelPublisher

	mu                sync.Mutex
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

func NewPublisher(conn *RabbitMQConnection) *Publisher {
	return &Publisher{channel: conn.Channel}
}

func (p *Publisher) PublishUploadReceived(ctx context.Context, evt models.UploadReceivedEvent) error {
	if err := p.publish(ctx, UploadReceivedQueue, evt); err != nil {
		return err
	}
	slog.Info("Upload event published", "queue", UploadReceivedQueue, "upload_id", evt.UploadID)
	return nil
}

func (p *Publisher) PublishReportGenerated(ctx context.Context, evt models.ReportGeneratedEvent) error {
	if err := p.publish(ctx, ReportGeneratedQueue, evt); err != nil {
		return err
	}
	slog.Info("Report event published", "queue", ReportGeneratedQueue, "report_id", evt.ReportID)
	return nil
}

func (p *Publisher) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.record(false)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key (queue name)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.record(false)
		return fmt.Errorf("failed to publish event to %s: %w", queue, err)
	}
	p.record(true)
	return nil
}

func (p *Publisher) record(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.messagesPublished++
		p.lastPublishTime = time.Now()
		return
	}
	p.messagesFailed++
}

// Stats returns published and failed message counts.
func (p *Publisher) Stats() (published, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messagesPublished, p.messagesFailed
}
