package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"eva-notify/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessageStore struct {
	since, until time.Time
	limit        int
	messages     []models.ChatMessage
}

func (f *fakeMessageStore) UndeliveredMessages(_ context.Context, since, until time.Time, limit int) ([]models.ChatMessage, error) {
	f.since, f.until, f.limit = since, until, limit
	return f.messages, nil
}

type fakeProcessor struct {
	processed []int64
	failOn    int64
}

func (f *fakeProcessor) Process(_ context.Context, msg models.ChatMessage) error {
	f.processed = append(f.processed, msg.ID)
	if msg.ID == f.failOn {
		return errors.New("boom")
	}
	return nil
}

func TestChatReconciler_ReprocessesUndelivered(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeMessageStore{messages: []models.ChatMessage{
		{ID: 1, DeliveryState: models.DeliveryFailed},
		{ID: 2, DeliveryState: models.DeliveryPending},
		{ID: 3, DeliveryState: models.DeliveryPending},
	}}
	processor := &fakeProcessor{failOn: 2}
	r := NewChatReconciler(store, processor, 15*time.Minute, zap.NewNop())
	r.now = fixed(now)

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []int64{1, 2, 3}, processor.processed)
	assert.Equal(t, now.Add(-24*time.Hour), store.since)
	assert.Equal(t, now.Add(-time.Minute), store.until)
	assert.Equal(t, reconcileLimit, store.limit)
}
