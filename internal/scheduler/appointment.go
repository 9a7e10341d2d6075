package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"eva-notify/internal/config"
	"eva-notify/internal/metrics"
	"eva-notify/pkg/models"

	"go.uber.org/zap"
)

// AppointmentStore é o acesso a consultas usado pelo AppointmentScanner
type AppointmentStore interface {
	AppointmentsInWindow(ctx context.Context, reminder models.AppointmentReminder, from, to time.Time) ([]models.Appointment, error)
	MarkAppointmentReminded(ctx context.Context, id int64, reminder models.AppointmentReminder) (bool, error)
}

// AppointmentScanner emite os lembretes de 1h e de 24h antes das consultas
type AppointmentScanner struct {
	store    AppointmentStore
	notifier Notifier
	interval time.Duration
	logger   *zap.Logger
	now      clock
}

func NewAppointmentScanner(store AppointmentStore, notifier Notifier, interval time.Duration, logger *zap.Logger) *AppointmentScanner {
	return &AppointmentScanner{
		store:    store,
		notifier: notifier,
		interval: interval,
		logger:   logger.With(zap.String("scanner", "appointment")),
		now:      systemClock,
	}
}

func (s *AppointmentScanner) Name() string            { return "appointment_scanner" }
func (s *AppointmentScanner) Interval() time.Duration { return s.interval }

// Run executa as duas passadas. As janelas [now, now+1h] e (now+1h, now+24h]
// não se sobrepõem.
func (s *AppointmentScanner) Run(ctx context.Context) error {
	now := s.now()
	hour := now.Add(config.AppointmentWindow)

	if err := s.pass(ctx, models.ReminderOneHour, now, hour); err != nil {
		return err
	}
	return s.pass(ctx, models.ReminderOneDay, hour, now.Add(24*time.Hour))
}

func (s *AppointmentScanner) pass(ctx context.Context, reminder models.AppointmentReminder, from, to time.Time) error {
	appointments, err := s.store.AppointmentsInWindow(ctx, reminder, from, to)
	if err != nil {
		return fmt.Errorf("failed to list appointments (%s): %w", reminder, err)
	}

	for _, a := range appointments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.remind(ctx, reminder, a)
	}
	return nil
}

func (s *AppointmentScanner) remind(ctx context.Context, reminder models.AppointmentReminder, a models.Appointment) {
	if a.DeviceToken == "" {
		s.logger.Warn("⚠️ Consulta sem device_token",
			zap.Int64("consulta_id", a.ID),
			zap.Int64("idoso_id", a.IdosoID),
		)
		metrics.ObserveSkipped(models.PayloadAppointment, "missing_endpoint")
		return
	}

	title, body := appointmentText(reminder, a)
	outcome := s.notifier.Deliver(ctx, models.NotificationJob{
		Endpoint: a.DeviceToken,
		Title:    title,
		Body:     body,
		Payload: models.Payload{
			Type:     models.PayloadAppointment,
			EntityID: a.ID,
			Extra: map[string]string{
				"idoso_id": strconv.FormatInt(a.IdosoID, 10),
				"reminder": string(reminder),
			},
		},
	})

	if !handled(outcome) {
		s.logger.Warn("⚠️ Falha transitória no lembrete de consulta",
			zap.Int64("consulta_id", a.ID),
			zap.String("reminder", string(reminder)),
			zap.Error(outcome.Err),
		)
		return
	}

	changed, err := s.store.MarkAppointmentReminded(ctx, a.ID, reminder)
	if err != nil {
		s.logger.Error("❌ Erro ao marcar lembrete de consulta", zap.Int64("consulta_id", a.ID), zap.Error(err))
		return
	}
	if !changed {
		s.logger.Debug("lembrete já marcado", zap.Int64("consulta_id", a.ID), zap.String("reminder", string(reminder)))
		return
	}

	s.logger.Info("📅 Lembrete de consulta enviado",
		zap.Int64("consulta_id", a.ID),
		zap.String("reminder", string(reminder)),
	)
}

func appointmentText(reminder models.AppointmentReminder, a models.Appointment) (string, string) {
	at := a.ScheduledAt.Format("15:04")
	if reminder == models.ReminderOneHour {
		return "📅 Consulta em 1 hora", fmt.Sprintf("%s às %s", a.Title, at)
	}
	return "📅 Consulta amanhã", fmt.Sprintf("%s amanhã às %s", a.Title, at)
}
