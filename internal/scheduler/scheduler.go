// Package scheduler contém os scanners de domínio executados pelo
// workers.Manager: medicação, consultas, atividades e a reconciliação do chat.
package scheduler

import (
	"context"
	"time"

	"eva-notify/internal/push"
	"eva-notify/pkg/models"
)

// Notifier entrega um job de endpoint único
type Notifier interface {
	Deliver(ctx context.Context, job models.NotificationJob) push.Outcome
}

// clock permite fixar o horário nos testes
type clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// handled indica se o evento pode ser dado como tratado. Falhas transitórias
// e de rate limit deixam o estado intacto para o próximo tick.
func handled(o push.Outcome) bool {
	return !o.Failed() || o.Kind() == push.KindEndpointInvalid
}
