package push

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// MaxBatchSize é o limite de tokens por multicast do FCM
const MaxBatchSize = 500

// Outcome é o resultado de entrega para um endpoint
type Outcome struct {
	Endpoint  string
	MessageID string
	Err       error
}

// Failed indica se a entrega falhou
func (o Outcome) Failed() bool { return o.Err != nil }

// Kind retorna a classificação da falha (KindTransient se não falhou)
func (o Outcome) Kind() Kind { return Classify(o.Err) }

// BatchResult agrega o resultado de um envio em lote
type BatchResult struct {
	SuccessCount int
	FailureCount int
	Outcomes     []Outcome
}

// InvalidEndpoints retorna os endpoints que o provedor rejeitou permanentemente
func (r BatchResult) InvalidEndpoints() []string {
	var invalid []string
	for _, o := range r.Outcomes {
		if IsEndpointInvalid(o.Err) {
			invalid = append(invalid, o.Endpoint)
		}
	}
	return invalid
}

// Gateway normaliza os envios ao provedor em resultados por endpoint.
// Não persiste nada e não faz retry.
type Gateway struct {
	provider  Provider
	batchSize int
	logger    *zap.Logger
}

// NewGateway cria o gateway; batchSize fora de (0, MaxBatchSize] vira MaxBatchSize
func NewGateway(provider Provider, batchSize int, logger *zap.Logger) *Gateway {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	return &Gateway{provider: provider, batchSize: batchSize, logger: logger}
}

// Validate faz um dry-run do token
func (g *Gateway) Validate(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return ErrEmptyEndpoint
	}
	if err := g.provider.Validate(ctx, endpoint); err != nil {
		return asDeliveryError(err)
	}
	return nil
}

// Send envia uma notificação para um único endpoint
func (g *Gateway) Send(ctx context.Context, endpoint string, n Notification) Outcome {
	if endpoint == "" {
		return Outcome{Err: ErrEmptyEndpoint}
	}

	id, err := g.provider.Send(ctx, endpoint, n)
	if err != nil {
		return Outcome{Endpoint: endpoint, Err: asDeliveryError(err)}
	}
	return Outcome{Endpoint: endpoint, MessageID: id}
}

// SendBatch envia para todos os endpoints em chunks sequenciais de até
// batchSize. A falha de um chunk não interrompe os seguintes.
func (g *Gateway) SendBatch(ctx context.Context, endpoints []string, n Notification) BatchResult {
	result := BatchResult{Outcomes: make([]Outcome, 0, len(endpoints))}

	for start := 0; start < len(endpoints); start += g.batchSize {
		end := start + g.batchSize
		if end > len(endpoints) {
			end = len(endpoints)
		}
		chunk := endpoints[start:end]

		batch, err := g.provider.SendMulticast(ctx, chunk, n)
		if err != nil {
			de := chunkError(err)
			g.logger.Warn("⚠️ Falha no envio do lote",
				zap.Int("chunk_start", start),
				zap.Int("chunk_size", len(chunk)),
				zap.String("kind", de.Kind.String()),
				zap.Error(err),
			)
			for _, endpoint := range chunk {
				result.Outcomes = append(result.Outcomes, Outcome{Endpoint: endpoint, Err: de})
			}
			result.FailureCount += len(chunk)
			continue
		}

		for i, endpoint := range chunk {
			o := Outcome{Endpoint: endpoint}
			if i >= len(batch.Responses) {
				o.Err = &DeliveryError{Kind: KindTransient, Code: "missing-response",
					Err: fmt.Errorf("provider returned %d responses for %d tokens", len(batch.Responses), len(chunk))}
			} else if resp := batch.Responses[i]; resp.Err != nil {
				o.Err = asDeliveryError(resp.Err)
			} else {
				o.MessageID = resp.MessageID
			}

			if o.Failed() {
				result.FailureCount++
			} else {
				result.SuccessCount++
			}
			result.Outcomes = append(result.Outcomes, o)
		}
	}

	return result
}

// chunkError classifica a falha da chamada inteira. Ela não diz nada sobre
// um token específico, então EndpointInvalid vira Transient.
func chunkError(err error) *DeliveryError {
	de := asDeliveryError(err)
	if de.Kind != KindEndpointInvalid {
		return de
	}
	return &DeliveryError{Kind: KindTransient, Code: "chunk-" + de.Code, Err: err}
}
