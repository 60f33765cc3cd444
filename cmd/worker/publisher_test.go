package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vastralabs/vastra-backend/pkg/config"
	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
	"github.com/vastralabs/vastra-backend/pkg/logger"
	"github.com/vastralabs/vastra-backend/pkg/outbox"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	fetchErr  error
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit > len(f.events) {
		limit = len(f.events)
	}
	return f.events[:limit], nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "msg-id", f.err
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	results  []publishResult
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	next := f.results[0]
	f.results = f.results[1:]
	return next
}

func testPublisher(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Publisher {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "worker-test", Level: zerolog.Disabled})
	p, err := NewPublisher(config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 3}, repo, pub, nil, logg)
	require.NoError(t, err)
	return p
}

func envelopePayload(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{"order_number":"VS-20260901-0001"}`),
	})
	require.NoError(t, err)
	return raw
}

func orderEvent(t *testing.T) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopePayload(t),
		CreatedAt:     time.Now(),
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{orderEvent(t), orderEvent(t)}}
	pub := &fakePublisher{}
	p := testPublisher(t, repo, pub)

	published, err := p.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, published)
	require.Len(t, repo.published, 2)
	require.Empty(t, repo.failed)

	require.Len(t, pub.messages, 2)
	msg := pub.messages[0]
	require.Equal(t, string(enums.EventOrderCreated), msg.Attributes["event_type"])
	require.Equal(t, string(enums.AggregateOrder), msg.Attributes["aggregate_type"])
	require.NotEmpty(t, msg.Attributes["event_id"])
	require.Equal(t, repo.events[0].AggregateID.String(), msg.Attributes["aggregate_id"])
}

func TestProcessBatchContinuesAfterPublishFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{orderEvent(t), orderEvent(t)}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	p := testPublisher(t, repo, pub)

	published, err := p.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, published)
	require.Equal(t, []uuid.UUID{repo.events[0].ID}, repo.failed)
	require.Equal(t, []uuid.UUID{repo.events[1].ID}, repo.published)
}

func TestProcessBatchEmptyOutbox(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	p := testPublisher(t, repo, pub)

	published, err := p.processBatch(context.Background())
	require.NoError(t, err)
	require.Zero(t, published)
	require.Empty(t, pub.messages)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	p := testPublisher(t, repo, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not stop after cancel")
	}
}
