package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vastralabs/vastra-backend/pkg/db/models"
	"github.com/vastralabs/vastra-backend/pkg/enums"
	"github.com/vastralabs/vastra-backend/pkg/logger"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`).Error)
	return db
}

func testOutboxService(db *gorm.DB) *Service {
	logg := logger.New(logger.Options{
		ServiceName: "outbox-test",
		Level:       zerolog.Disabled,
	})
	return NewService(NewRepository(db), logg)
}

func orderCreatedEvent(aggregateID uuid.UUID) DomainEvent {
	return DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   aggregateID,
		Data:          map[string]string{"order_number": "VA-1001"},
		Version:       1,
	}
}

func countOutboxEvents(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	return count
}

func TestEmitWritesEnvelopeRow(t *testing.T) {
	db := setupOutboxTestDB(t)
	service := testOutboxService(db)
	aggregateID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return service.Emit(context.Background(), tx, orderCreatedEvent(aggregateID))
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	require.Equal(t, enums.EventOrderCreated, row.EventType)
	require.Equal(t, enums.AggregateOrder, row.AggregateType)
	require.Equal(t, aggregateID, row.AggregateID)
	require.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.False(t, envelope.OccurredAt.IsZero())
}

func TestEmitRequiresTransaction(t *testing.T) {
	service := testOutboxService(setupOutboxTestDB(t))
	err := service.Emit(context.Background(), nil, orderCreatedEvent(uuid.New()))
	require.Error(t, err)
}

func TestExistsTxSeesQueuedEvent(t *testing.T) {
	db := setupOutboxTestDB(t)
	service := testOutboxService(db)
	repo := NewRepository(db)
	aggregateID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		exists, err := repo.ExistsTx(tx, enums.EventOrderCreated, enums.AggregateOrder, aggregateID)
		require.NoError(t, err)
		require.False(t, exists)

		if err := service.Emit(context.Background(), tx, orderCreatedEvent(aggregateID)); err != nil {
			return err
		}

		exists, err = repo.ExistsTx(tx, enums.EventOrderCreated, enums.AggregateOrder, aggregateID)
		require.NoError(t, err)
		require.True(t, exists)
		return nil
	})
	require.NoError(t, err)
}

func TestEmitIfNotExistsSkipsDuplicate(t *testing.T) {
	db := setupOutboxTestDB(t)
	service := testOutboxService(db)
	aggregateID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return service.EmitIfNotExists(context.Background(), tx, orderCreatedEvent(aggregateID))
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, countOutboxEvents(t, db))

	err = db.Transaction(func(tx *gorm.DB) error {
		return service.EmitIfNotExists(context.Background(), tx, orderCreatedEvent(aggregateID))
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, countOutboxEvents(t, db))
}
