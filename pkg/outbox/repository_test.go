package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mljjcooking/storefront-backend/pkg/db/models"
	"github.com/mljjcooking/storefront-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	events := `
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
);`
	dlq := `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME
);`
	require.NoError(t, db.Exec(events).Error)
	require.NoError(t, db.Exec(dlq).Error)
	require.NoError(t, db.Exec("DELETE FROM outbox_events").Error)
	require.NoError(t, db.Exec("DELETE FROM outbox_dlq").Error)
	return db
}

func newOutboxEvent() models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
	}
}

func TestRepositoryInsertAndExists(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	event := newOutboxEvent()

	require.NoError(t, repo.Insert(db, event))

	exists, err := repo.ExistsTx(db, event.EventType, event.AggregateType, event.AggregateID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsTx(db, event.EventType, event.AggregateType, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryMarkFailedIncrementsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	event := newOutboxEvent()
	require.NoError(t, repo.Insert(db, event))

	require.NoError(t, repo.MarkFailedTx(db, event.ID, errors.New("publish timeout")))
	require.NoError(t, repo.MarkFailedTx(db, event.ID, errors.New("publish timeout")))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "publish timeout", *row.LastError)
	assert.Nil(t, row.PublishedAt)
}

func TestRepositoryMarkPublished(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	event := newOutboxEvent()
	require.NoError(t, repo.Insert(db, event))

	require.NoError(t, repo.MarkPublishedTx(db, event.ID))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.NotNil(t, row.PublishedAt)
}

func TestRepositoryMarkTerminalPinsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	event := newOutboxEvent()
	require.NoError(t, repo.Insert(db, event))

	require.NoError(t, repo.MarkTerminalTx(db, event.ID, errors.New("bad payload"), 10))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, 10, row.AttemptCount)
}

func TestRepositoryRequiresTransaction(t *testing.T) {
	repo := NewRepository(nil)
	assert.Error(t, repo.Insert(nil, newOutboxEvent()))
	_, err := repo.ExistsTx(nil, enums.EventOrderPaid, enums.AggregateOrder, uuid.New())
	assert.Error(t, err)
}

func TestDLQRepositoryInsertAndFind(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)
	msg := "decoder rejected payload"
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
		AttemptCount:  1,
	}
	require.NoError(t, repo.InsertTx(db, entry))

	found, err := repo.FindByEventID(context.Background(), entry.EventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, entry.EventID, found.EventID)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, found.ErrorReason)

	missing, err := repo.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDLQRepositoryTruncatesLongErrors(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)
	msg := strings.Repeat("x", maxDLQErrorLen+500)
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventOrderPaymentFailed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}
	require.NoError(t, repo.InsertTx(db, entry))

	found, err := repo.FindByEventID(context.Background(), entry.EventID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.ErrorMessage)
	assert.Len(t, *found.ErrorMessage, maxDLQErrorLen)
}

func TestDLQRepositoryListNewestFirst(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)
	for range 3 {
		entry := models.OutboxDLQ{
			ID:            uuid.New(),
			EventID:       uuid.New(),
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		}
		require.NoError(t, repo.InsertTx(db, entry))
	}

	rows, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
