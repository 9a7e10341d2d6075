package scheduler

import (
	"context"
	"testing"
	"time"

	"eva-notify/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAppointmentStore aplica os mesmos predicados de janela e flag do Postgres
type fakeAppointmentStore struct {
	appointments []models.Appointment
	marks        int
}

func (f *fakeAppointmentStore) AppointmentsInWindow(_ context.Context, reminder models.AppointmentReminder, from, to time.Time) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appointments {
		lowerOK := !a.ScheduledAt.Before(from)
		if reminder == models.ReminderOneDay {
			lowerOK = a.ScheduledAt.After(from)
		}
		if !lowerOK || a.ScheduledAt.After(to) {
			continue
		}
		if reminder == models.ReminderOneHour && a.Notified1h {
			continue
		}
		if reminder == models.ReminderOneDay && a.Notified24h {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppointmentStore) MarkAppointmentReminded(_ context.Context, id int64, reminder models.AppointmentReminder) (bool, error) {
	for i := range f.appointments {
		a := &f.appointments[i]
		if a.ID != id {
			continue
		}
		f.marks++
		switch reminder {
		case models.ReminderOneHour:
			if a.Notified1h {
				return false, nil
			}
			a.Notified1h = true
		case models.ReminderOneDay:
			if a.Notified24h {
				return false, nil
			}
			a.Notified24h = true
		}
		return true, nil
	}
	return false, nil
}

func newAppointment(store *fakeAppointmentStore, notifier *fakeNotifier, now time.Time) *AppointmentScanner {
	s := NewAppointmentScanner(store, notifier, 15*time.Minute, zap.NewNop())
	s.now = fixed(now)
	return s
}

var appointmentAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestAppointmentScanner_OneHourReminderIsOneShot(t *testing.T) {
	store := &fakeAppointmentStore{appointments: []models.Appointment{
		{ID: 1, IdosoID: 10, ScheduledAt: appointmentAt, Title: "Cardiologista", Notified24h: true, DeviceToken: "tok-1"},
	}}
	notifier := &fakeNotifier{}
	s := newAppointment(store, notifier, time.Date(2024, 3, 1, 9, 10, 0, 0, time.UTC))

	require.NoError(t, s.Run(context.Background()))
	require.Len(t, notifier.jobs, 1)
	assert.Equal(t, "📅 Consulta em 1 hora", notifier.jobs[0].Title)
	assert.Equal(t, "1h", notifier.jobs[0].Payload.Extra["reminder"])
	assert.True(t, store.appointments[0].Notified1h)

	s.now = fixed(time.Date(2024, 3, 1, 9, 50, 0, 0, time.UTC))
	require.NoError(t, s.Run(context.Background()))
	assert.Len(t, notifier.jobs, 1)
}

func TestAppointmentScanner_EachReminderFiresOnceAcrossTheDay(t *testing.T) {
	store := &fakeAppointmentStore{appointments: []models.Appointment{
		{ID: 1, IdosoID: 10, ScheduledAt: appointmentAt, Title: "Exame", DeviceToken: "tok-1"},
	}}
	notifier := &fakeNotifier{}
	s := newAppointment(store, notifier, appointmentAt.Add(-30*time.Hour))

	for now := appointmentAt.Add(-30 * time.Hour); now.Before(appointmentAt.Add(time.Hour)); now = now.Add(15 * time.Minute) {
		s.now = fixed(now)
		require.NoError(t, s.Run(context.Background()))
	}

	require.Len(t, notifier.jobs, 2)
	assert.Equal(t, "📅 Consulta amanhã", notifier.jobs[0].Title)
	assert.Equal(t, "📅 Consulta em 1 hora", notifier.jobs[1].Title)
}

func TestAppointmentScanner_ExactlyOneHourAwayOnlyInFirstPass(t *testing.T) {
	store := &fakeAppointmentStore{appointments: []models.Appointment{
		{ID: 1, ScheduledAt: appointmentAt, Title: "Exame", DeviceToken: "tok-1"},
	}}
	notifier := &fakeNotifier{}

	require.NoError(t, newAppointment(store, notifier, appointmentAt.Add(-time.Hour)).Run(context.Background()))

	require.Len(t, notifier.jobs, 1)
	assert.True(t, store.appointments[0].Notified1h)
	assert.False(t, store.appointments[0].Notified24h)
}

func TestAppointmentScanner_MissingEndpointLeavesFlag(t *testing.T) {
	store := &fakeAppointmentStore{appointments: []models.Appointment{
		{ID: 1, ScheduledAt: appointmentAt, Title: "Exame"},
	}}
	notifier := &fakeNotifier{}

	require.NoError(t, newAppointment(store, notifier, appointmentAt.Add(-30*time.Minute)).Run(context.Background()))

	assert.Empty(t, notifier.jobs)
	assert.Zero(t, store.marks)
	assert.False(t, store.appointments[0].Notified1h)
}

func TestAppointmentScanner_TransientFailureRetriesNextTick(t *testing.T) {
	store := &fakeAppointmentStore{appointments: []models.Appointment{
		{ID: 1, ScheduledAt: appointmentAt, Title: "Exame", Notified24h: true, DeviceToken: "tok-1"},
	}}
	notifier := &fakeNotifier{errs: map[string]error{"tok-1": transient}}
	s := newAppointment(store, notifier, appointmentAt.Add(-50*time.Minute))

	require.NoError(t, s.Run(context.Background()))
	assert.False(t, store.appointments[0].Notified1h)

	notifier.errs = nil
	s.now = fixed(appointmentAt.Add(-35 * time.Minute))
	require.NoError(t, s.Run(context.Background()))

	assert.Len(t, notifier.jobs, 2)
	assert.True(t, store.appointments[0].Notified1h)
}
