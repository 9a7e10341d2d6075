package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"eva-notify/internal/frequency"
	"eva-notify/internal/metrics"
	"eva-notify/pkg/models"

	"go.uber.org/zap"
)

// TreatmentStore é o acesso a tratamentos usado pelo MedicationScanner
type TreatmentStore interface {
	DueTreatments(ctx context.Context, now time.Time) ([]models.Treatment, error)
	AdvanceTreatment(ctx context.Context, id int64, notifiedAt, nextDue time.Time) error
	CompleteTreatment(ctx context.Context, id int64, notifiedAt time.Time) error
}

// MedicationScanner emite lembretes de dose para tratamentos vencidos
type MedicationScanner struct {
	store    TreatmentStore
	notifier Notifier
	interval time.Duration
	logger   *zap.Logger
	now      clock
}

func NewMedicationScanner(store TreatmentStore, notifier Notifier, interval time.Duration, logger *zap.Logger) *MedicationScanner {
	return &MedicationScanner{
		store:    store,
		notifier: notifier,
		interval: interval,
		logger:   logger.With(zap.String("scanner", "medication")),
		now:      systemClock,
	}
}

func (s *MedicationScanner) Name() string            { return "medication_scanner" }
func (s *MedicationScanner) Interval() time.Duration { return s.interval }

// Run processa todos os tratamentos ativos. Um registro ruim nunca aborta a varredura.
func (s *MedicationScanner) Run(ctx context.Context) error {
	now := s.now()

	treatments, err := s.store.DueTreatments(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list treatments: %w", err)
	}

	var sent int
	for _, t := range treatments {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.process(ctx, t, now) {
			sent++
		}
	}

	if sent > 0 {
		s.logger.Info("💊 Lembretes de medicação processados",
			zap.Int("candidates", len(treatments)),
			zap.Int("handled", sent),
		)
	}
	return nil
}

func (s *MedicationScanner) process(ctx context.Context, t models.Treatment, now time.Time) bool {
	interval, ok := frequency.Parse(t.Frequency)
	if !ok {
		s.logger.Warn("⚠️ Frequência inválida, tratamento ignorado",
			zap.Int64("tratamento_id", t.ID),
			zap.String("frequencia", t.Frequency),
		)
		metrics.ObserveSkipped(models.PayloadMedication, "invalid_frequency")
		return false
	}

	if t.DeviceToken == "" {
		s.logger.Warn("⚠️ Sem device_token", zap.Int64("idoso_id", t.IdosoID))
		metrics.ObserveSkipped(models.PayloadMedication, "missing_endpoint")
		return false
	}

	if now.Before(t.DueAt()) {
		return false
	}

	outcome := s.notifier.Deliver(ctx, models.NotificationJob{
		Endpoint: t.DeviceToken,
		Title:    "💊 Hora do medicamento",
		Body:     doseBody(t),
		Payload: models.Payload{
			Type:     models.PayloadMedication,
			EntityID: t.ID,
			Extra: map[string]string{
				"idoso_id":       strconv.FormatInt(t.IdosoID, 10),
				"medicamento_id": strconv.FormatInt(t.MedicationID, 10),
			},
		},
	})

	if !handled(outcome) {
		s.logger.Warn("⚠️ Falha transitória no lembrete de medicação",
			zap.Int64("tratamento_id", t.ID),
			zap.String("kind", outcome.Kind().String()),
			zap.Error(outcome.Err),
		)
		return false
	}

	next := frequency.Next(t.DueAt(), interval, now)
	if next.After(t.EndAt) {
		err := s.store.CompleteTreatment(ctx, t.ID, now)
		if err != nil {
			s.logger.Error("❌ Erro ao finalizar tratamento", zap.Int64("tratamento_id", t.ID), zap.Error(err))
			return false
		}
		s.logger.Info("🏁 Tratamento concluído", zap.Int64("tratamento_id", t.ID))
		return true
	}

	if err := s.store.AdvanceTreatment(ctx, t.ID, now, next); err != nil {
		s.logger.Error("❌ Erro ao agendar próxima dose", zap.Int64("tratamento_id", t.ID), zap.Error(err))
		return false
	}
	return true
}

func doseBody(t models.Treatment) string {
	if t.Dose == "" {
		return fmt.Sprintf("%s, está na hora de tomar %s", t.IdosoNome, t.MedicationName)
	}
	return fmt.Sprintf("%s, está na hora de tomar %s (%s)", t.IdosoNome, t.MedicationName, t.Dose)
}
