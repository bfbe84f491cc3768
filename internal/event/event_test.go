package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"monitoring-service/internal/models"
	"monitoring-service/internal/worker"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	keys []string
	msgs []amqp.Publishing
	err  error
}

func (c *recordingChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, key)
	c.msgs = append(c.msgs, msg)
	return nil
}

type recordingPool struct {
	payloads []worker.JobPayload
	err      error
}

func (p *recordingPool) SubmitPayload(_ context.Context, payload worker.JobPayload) error {
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestPublisher_RoutesEventsToQueues(t *testing.T) {
	ch := &recordingChannel{}
	pub := &Publisher{channel: ch}
	uploadID := uuid.New()

	require.NoError(t, pub.PublishUploadReceived(context.Background(), models.UploadReceivedEvent{UploadID: uploadID}))
	require.NoError(t, pub.PublishReportGenerated(context.Background(), models.ReportGeneratedEvent{ReportID: uuid.New()}))

	assert.Equal(t, []string{UploadReceivedQueue, ReportGeneratedQueue}, ch.keys)
	assert.Equal(t, amqp.Persistent, ch.msgs[0].DeliveryMode)

	var decoded models.UploadReceivedEvent
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &decoded))
	assert.Equal(t, uploadID, decoded.UploadID)

	published, failed := pub.Stats()
	assert.Equal(t, int64(2), published)
	assert.Equal(t, int64(0), failed)
}

func TestPublisher_CountsFailures(t *testing.T) {
	pub := &Publisher{channel: &recordingChannel{err: errors.New("channel closed")}}
	err := pub.PublishUploadReceived(context.Background(), models.UploadReceivedEvent{})
	require.Error(t, err)

	_, failed := pub.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestUploadConsumer_HandleSubmitsJob(t *testing.T) {
	pool := &recordingPool{}
	consumer := &UploadConsumer{pool: pool}
	uploadID := uuid.New()

	body, err := json.Marshal(models.UploadReceivedEvent{UploadID: uploadID, FileType: models.FileTypeCSV})
	require.NoError(t, err)
	require.NoError(t, consumer.handle(context.Background(), body))

	require.Len(t, pool.payloads, 1)
	assert.Equal(t, worker.JobTypeProcessUpload, pool.payloads[0].Type)
	assert.Equal(t, uploadID.String(), pool.payloads[0].Params["upload_id"])
}

func TestUploadConsumer_MalformedMessage(t *testing.T) {
	consumer := &UploadConsumer{pool: &recordingPool{}}
	err := consumer.handle(context.Background(), []byte("{"))

	var malformed *malformedMessageError
	assert.ErrorAs(t, err, &malformed)
}

func TestLocalPublisher_SubmitsUploadJob(t *testing.T) {
	pool := &recordingPool{}
	pub := NewLocalPublisher(pool)
	uploadID := uuid.New()

	require.NoError(t, pub.PublishUploadReceived(context.Background(), models.UploadReceivedEvent{UploadID: uploadID}))
	require.NoError(t, pub.PublishReportGenerated(context.Background(), models.ReportGeneratedEvent{}))

	require.Len(t, pool.payloads, 1)
	assert.Equal(t, uploadID.String(), pool.payloads[0].Params["upload_id"])
}
