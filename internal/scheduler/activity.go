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

type ActivityStore interface {
	UpcomingActivities(ctx context.Context, from, to time.Time) ([]models.Activity, error)
	MarkActivityNotified(ctx context.Context, id int64) (bool, error)
}

// ActivityScanner avisa atividades pendentes que começam nos próximos 30 minutos
type ActivityScanner struct {
	store    ActivityStore
	notifier Notifier
	interval time.Duration
	logger   *zap.Logger
	now      clock
}

func NewActivityScanner(store ActivityStore, notifier Notifier, interval time.Duration, logger *zap.Logger) *ActivityScanner {
	return &ActivityScanner{
		store:    store,
		notifier: notifier,
		interval: interval,
		logger:   logger.With(zap.String("scanner", "activity")),
		now:      systemClock,
	}
}

func (s *ActivityScanner) Name() string            { return "activity_scanner" }
func (s *ActivityScanner) Interval() time.Duration { return s.interval }

func (s *ActivityScanner) Run(ctx context.Context) error {
	now := s.now()

	activities, err := s.store.UpcomingActivities(ctx, now, now.Add(config.ActivityWindow))
	if err != nil {
		return fmt.Errorf("failed to list activities: %w", err)
	}

	for _, a := range activities {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if a.DeviceToken == "" {
			s.logger.Warn("⚠️ Atividade sem device_token",
				zap.Int64("atividade_id", a.ID),
				zap.Int64("idoso_id", a.IdosoID),
			)
			metrics.ObserveSkipped(models.PayloadActivity, "missing_endpoint")
			continue
		}

		outcome := s.notifier.Deliver(ctx, models.NotificationJob{
			Endpoint: a.DeviceToken,
			Title:    "🗓️ Atividade em breve",
			Body:     fmt.Sprintf("%s começa às %s", a.Title, a.StartAt.Format("15:04")),
			Payload: models.Payload{
				Type:     models.PayloadActivity,
				EntityID: a.ID,
				Extra:    map[string]string{"idoso_id": strconv.FormatInt(a.IdosoID, 10)},
			},
		})
		if !handled(outcome) {
			s.logger.Warn("⚠️ Falha transitória no aviso de atividade",
				zap.Int64("atividade_id", a.ID),
				zap.Error(outcome.Err),
			)
			continue
		}

		if _, err := s.store.MarkActivityNotified(ctx, a.ID); err != nil {
			s.logger.Error("❌ Erro ao marcar atividade", zap.Int64("atividade_id", a.ID), zap.Error(err))
		}
	}

	return nil
}
