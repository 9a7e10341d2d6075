package chat

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"eva-notify/internal/push"
	"eva-notify/pkg/models"

	"go.uber.org/zap"
)

const previewLength = 100

// Store é o acesso a mensagens e membros usado pelo FanOut
type Store interface {
	MessageState(ctx context.Context, id int64) (models.DeliveryState, error)
	CommunityRecipients(ctx context.Context, communityID, excludeUserID int64) ([]models.Recipient, error)
	SetMessageState(ctx context.Context, id int64, state models.DeliveryState, errText string) error
}

// BatchNotifier entrega um job com fan-out
type BatchNotifier interface {
	DeliverBatch(ctx context.Context, job models.BatchJob) push.BatchResult
}

// FanOut entrega uma mensagem de chat aos demais membros da comunidade
type FanOut struct {
	store    Store
	notifier BatchNotifier
	logger   *zap.Logger
}

func NewFanOut(store Store, notifier BatchNotifier, logger *zap.Logger) *FanOut {
	return &FanOut{store: store, notifier: notifier, logger: logger}
}

// Process é idempotente: mensagens já notificadas são ignoradas.
// Erros de leitura deixam o estado intacto para a reconciliação.
func (f *FanOut) Process(ctx context.Context, msg models.ChatMessage) error {
	state, err := f.store.MessageState(ctx, msg.ID)
	if err != nil {
		return err
	}
	if state == models.DeliveryNotified {
		f.logger.Debug("mensagem já notificada", zap.Int64("mensagem_id", msg.ID))
		return nil
	}

	recipients, err := f.store.CommunityRecipients(ctx, msg.CommunityID, msg.SenderID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipients: %w", err)
	}

	endpoints := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.DeviceToken != "" {
			endpoints = append(endpoints, r.DeviceToken)
		}
	}

	if len(endpoints) == 0 {
		return f.store.SetMessageState(ctx, msg.ID, models.DeliveryNotified, "")
	}

	result := f.notifier.DeliverBatch(ctx, models.BatchJob{
		Endpoints: endpoints,
		Title:     "💬 Nova mensagem na comunidade",
		Body:      messagePreview(msg),
		Payload: models.Payload{
			Type:     models.PayloadChat,
			EntityID: msg.ID,
			Extra:    map[string]string{"comunidade_id": strconv.FormatInt(msg.CommunityID, 10)},
		},
	})

	if cause := retryableFailure(result); cause != nil {
		f.logger.Warn("⚠️ Falha na entrega da mensagem",
			zap.Int64("mensagem_id", msg.ID),
			zap.Int("failures", result.FailureCount),
			zap.Error(cause),
		)
		return f.store.SetMessageState(ctx, msg.ID, models.DeliveryFailed, cause.Error())
	}

	f.logger.Info("💬 Mensagem notificada",
		zap.Int64("mensagem_id", msg.ID),
		zap.Int64("comunidade_id", msg.CommunityID),
		zap.Int("success", result.SuccessCount),
		zap.Int("failures", result.FailureCount),
	)
	return f.store.SetMessageState(ctx, msg.ID, models.DeliveryNotified, "")
}

// retryableFailure retorna o primeiro erro retentável quando nenhum
// destinatário recebeu a mensagem. Endpoints inválidos não contam: já foram
// removidos e não há o que retentar.
func retryableFailure(result push.BatchResult) error {
	if result.SuccessCount > 0 {
		return nil
	}
	for _, o := range result.Outcomes {
		if o.Failed() && o.Kind() != push.KindEndpointInvalid {
			return o.Err
		}
	}
	return nil
}

func messagePreview(msg models.ChatMessage) string {
	body := msg.Body
	if utf8.RuneCountInString(body) > previewLength {
		runes := []rune(body)
		body = string(runes[:previewLength]) + "…"
	}
	if msg.SenderName == "" {
		return body
	}
	return msg.SenderName + ": " + body
}
