package notify

import (
	"context"

	"eva-notify/internal/metrics"
	"eva-notify/internal/push"
	"eva-notify/pkg/models"

	"go.uber.org/zap"
)

// Sender é o gateway de push
type Sender interface {
	Send(ctx context.Context, endpoint string, n push.Notification) push.Outcome
	SendBatch(ctx context.Context, endpoints []string, n push.Notification) push.BatchResult
}

// Screener é o tracker de saúde dos endpoints
type Screener interface {
	Screen(ctx context.Context, endpoints []string) []string
	RemoveInvalid(ctx context.Context, endpoints ...string) error
}

// errScreenedOut marca um endpoint descartado na pré-validação
var errScreenedOut = &push.DeliveryError{Kind: push.KindEndpointInvalid, Code: "prevalidation-failed"}

// Dispatcher executa pré-validação -> envio -> limpeza de tokens de um job
type Dispatcher struct {
	sender   Sender
	screener Screener
	logger   *zap.Logger
}

func NewDispatcher(sender Sender, screener Screener, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, screener: screener, logger: logger}
}

// Deliver entrega um job de endpoint único
func (d *Dispatcher) Deliver(ctx context.Context, job models.NotificationJob) push.Outcome {
	n := notification(job.Title, job.Body, job.Payload)

	if len(d.screener.Screen(ctx, []string{job.Endpoint})) == 0 {
		metrics.ObserveNotifications(job.Payload.Type, metrics.OutcomeInvalid, 1)
		return push.Outcome{Endpoint: job.Endpoint, Err: errScreenedOut}
	}

	outcome := d.sender.Send(ctx, job.Endpoint, n)
	if push.IsEndpointInvalid(outcome.Err) {
		if err := d.screener.RemoveInvalid(ctx, job.Endpoint); err != nil {
			d.logger.Error("❌ Erro ao remover token inválido", zap.Error(err))
		}
	}

	metrics.ObserveNotifications(job.Payload.Type, outcomeLabel(outcome), 1)
	return outcome
}

// DeliverBatch entrega um job com fan-out. Endpoints barrados na
// pré-validação entram como falha no resultado.
func (d *Dispatcher) DeliverBatch(ctx context.Context, job models.BatchJob) push.BatchResult {
	n := notification(job.Title, job.Body, job.Payload)

	valid := d.screener.Screen(ctx, job.Endpoints)
	accepted := make(map[string]struct{}, len(valid))
	for _, e := range valid {
		accepted[e] = struct{}{}
	}

	var result push.BatchResult
	if len(valid) > 0 {
		result = d.sender.SendBatch(ctx, valid, n)
	}

	seen := make(map[string]struct{}, len(job.Endpoints))
	for _, e := range job.Endpoints {
		if _, ok := accepted[e]; ok {
			continue
		}
		if _, dup := seen[e]; dup || e == "" {
			continue
		}
		seen[e] = struct{}{}
		result.FailureCount++
		result.Outcomes = append(result.Outcomes, push.Outcome{Endpoint: e, Err: errScreenedOut})
	}

	if invalid := sentInvalid(result); len(invalid) > 0 {
		if err := d.screener.RemoveInvalid(ctx, invalid...); err != nil {
			d.logger.Error("❌ Erro ao remover tokens inválidos do lote", zap.Error(err))
		}
	}

	for _, o := range result.Outcomes {
		metrics.ObserveNotifications(job.Payload.Type, outcomeLabel(o), 1)
	}
	return result
}

// sentInvalid retorna os inválidos reportados pelo provedor (os barrados na
// pré-validação já foram removidos pelo Screen)
func sentInvalid(result push.BatchResult) []string {
	var out []string
	for _, o := range result.Outcomes {
		if o.Err == errScreenedOut {
			continue
		}
		if push.IsEndpointInvalid(o.Err) {
			out = append(out, o.Endpoint)
		}
	}
	return out
}

func notification(title, body string, payload models.Payload) push.Notification {
	return push.Notification{Title: title, Body: body, Data: payload.Data()}
}

func outcomeLabel(o push.Outcome) string {
	if !o.Failed() {
		return metrics.OutcomeSent
	}
	switch o.Kind() {
	case push.KindEndpointInvalid:
		return metrics.OutcomeInvalid
	case push.KindRateLimited:
		return metrics.OutcomeRateLimited
	default:
		return metrics.OutcomeTransient
	}
}
