package scheduler

import (
	"context"
	"fmt"
	"time"

	"eva-notify/pkg/models"

	"go.uber.org/zap"
)

const (
	reconcileGrace    = time.Minute
	reconcileLookback = 24 * time.Hour
	reconcileLimit    = 100
)

type MessageStore interface {
	UndeliveredMessages(ctx context.Context, since, until time.Time, limit int) ([]models.ChatMessage, error)
}

// MessageProcessor é o fan-out do chat
type MessageProcessor interface {
	Process(ctx context.Context, msg models.ChatMessage) error
}

// ChatReconciler reprocessa mensagens que ficaram pending ou
// notification_failed. Mensagens mais novas que reconcileGrace ficam com o
// listener. Com o listener atrasado os dois podem entregar a mesma mensagem;
// a entrega é at-least-once e o estado final é monotônico.
type ChatReconciler struct {
	store     MessageStore
	processor MessageProcessor
	interval  time.Duration
	logger    *zap.Logger
	now       clock
}

func NewChatReconciler(store MessageStore, processor MessageProcessor, interval time.Duration, logger *zap.Logger) *ChatReconciler {
	return &ChatReconciler{
		store:     store,
		processor: processor,
		interval:  interval,
		logger:    logger.With(zap.String("scanner", "chat_reconcile")),
		now:       systemClock,
	}
}

func (r *ChatReconciler) Name() string            { return "chat_reconciler" }
func (r *ChatReconciler) Interval() time.Duration { return r.interval }

func (r *ChatReconciler) Run(ctx context.Context) error {
	now := r.now()

	messages, err := r.store.UndeliveredMessages(ctx, now.Add(-reconcileLookback), now.Add(-reconcileGrace), reconcileLimit)
	if err != nil {
		return fmt.Errorf("failed to list undelivered messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	r.logger.Info("🔁 Reprocessando mensagens do chat", zap.Int("count", len(messages)))

	for _, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.processor.Process(ctx, msg); err != nil {
			r.logger.Error("❌ Erro ao reprocessar mensagem", zap.Int64("mensagem_id", msg.ID), zap.Error(err))
		}
	}
	return nil
}
