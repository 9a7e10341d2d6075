package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eva-notify/internal/chat"
	"eva-notify/internal/config"
	"eva-notify/internal/push"
	"eva-notify/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeStore) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeStore) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeStore) DueTreatments(context.Context, time.Time) ([]models.Treatment, error) {
	f.hit("treatments")
	return nil, nil
}
func (f *fakeStore) AdvanceTreatment(context.Context, int64, time.Time, time.Time) error { return nil }
func (f *fakeStore) CompleteTreatment(context.Context, int64, time.Time) error           { return nil }
func (f *fakeStore) AppointmentsInWindow(context.Context, models.AppointmentReminder, time.Time, time.Time) ([]models.Appointment, error) {
	f.hit("appointments")
	return nil, nil
}
func (f *fakeStore) MarkAppointmentReminded(context.Context, int64, models.AppointmentReminder) (bool, error) {
	return true, nil
}
func (f *fakeStore) UpcomingActivities(context.Context, time.Time, time.Time) ([]models.Activity, error) {
	f.hit("activities")
	return nil, nil
}
func (f *fakeStore) MarkActivityNotified(context.Context, int64) (bool, error) { return true, nil }
func (f *fakeStore) UndeliveredMessages(context.Context, time.Time, time.Time, int) ([]models.ChatMessage, error) {
	f.hit("messages")
	return nil, nil
}

type nopNotifier struct{}

func (nopNotifier) Deliver(_ context.Context, job models.NotificationJob) push.Outcome {
	return push.Outcome{Endpoint: job.Endpoint}
}

type nopProcessor struct{}

func (nopProcessor) Process(context.Context, models.ChatMessage) error { return nil }

// droppingFeed fecha cada inscrição imediatamente
type droppingFeed struct {
	subscribes int32
}

func (f *droppingFeed) Subscribe(context.Context) (chat.Subscription, error) {
	if atomic.AddInt32(&f.subscribes, 1)%2 == 0 {
		return nil, errors.New("connection refused")
	}
	ch := make(chan models.ChatMessage)
	close(ch)
	return closedSub(ch), nil
}

type closedSub chan models.ChatMessage

func (s closedSub) Messages() <-chan models.ChatMessage { return s }
func (s closedSub) Close() error                        { return nil }

func testConfig() *config.Config {
	return &config.Config{
		MedicationScanInterval:  time.Hour,
		AppointmentScanInterval: time.Hour,
		ActivityScanInterval:    time.Hour,
		ChatReconcileInterval:   time.Hour,
		JobTimeout:              time.Second,
	}
}

func TestSupervisor_StartsAllScanners(t *testing.T) {
	store := &fakeStore{}
	s := New(testConfig(), store, nopNotifier{}, nopProcessor{}, nil, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return store.count("treatments") == 1 &&
			store.count("appointments") == 2 &&
			store.count("activities") == 1 &&
			store.count("messages") == 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Len(t, s.Stats(), 4)
}

func TestSupervisor_StartTwice(t *testing.T) {
	s := New(testConfig(), &fakeStore{}, nopNotifier{}, nopProcessor{}, nil, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestSupervisor_RestartsListener(t *testing.T) {
	feed := &droppingFeed{}
	s := New(testConfig(), &fakeStore{}, nopNotifier{}, nopProcessor{}, feed, zap.NewNop())
	s.backoff = time.Millisecond

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&feed.subscribes) >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := atomic.LoadInt32(&feed.subscribes)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&feed.subscribes))
}

func TestSupervisor_StopWithoutStart(t *testing.T) {
	s := New(testConfig(), &fakeStore{}, nopNotifier{}, nopProcessor{}, nil, zap.NewNop())
	s.Stop()
}
