package chat

import (
	"context"
	"errors"

	"eva-notify/pkg/models"

	"go.uber.org/zap"
)

// ErrFeedClosed indica que a inscrição caiu e o listener precisa ser reiniciado
var ErrFeedClosed = errors.New("chat feed closed")

// Processor trata uma mensagem recebida do feed
type Processor interface {
	Process(ctx context.Context, msg models.ChatMessage) error
}

// Listener é o consumidor único do feed do chat
type Listener struct {
	feed      Feed
	processor Processor
	logger    *zap.Logger
}

func NewListener(feed Feed, processor Processor, logger *zap.Logger) *Listener {
	return &Listener{feed: feed, processor: processor, logger: logger}
}

// Run consome o feed até ctx ser cancelado ou a inscrição cair.
// Só mensagens pending são processadas.
func (l *Listener) Run(ctx context.Context) error {
	sub, err := l.feed.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-sub.Messages():
			if !ok {
				return ErrFeedClosed
			}
			if msg.DeliveryState != models.DeliveryPending {
				continue
			}
			if err := l.processor.Process(ctx, msg); err != nil {
				l.logger.Error("❌ Erro ao processar mensagem do chat",
					zap.Int64("mensagem_id", msg.ID),
					zap.Error(err),
				)
			}
		}
	}
}
