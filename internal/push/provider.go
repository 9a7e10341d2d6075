package push

import "context"

// Notification é o conteúdo de um push independente do provedor
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// ProviderResponse é o resultado de um token dentro de um multicast
type ProviderResponse struct {
	MessageID string
	Err       error
}

// ProviderBatch é a resposta de um multicast na ordem dos tokens enviados
type ProviderBatch struct {
	SuccessCount int
	FailureCount int
	Responses    []ProviderResponse
}

// Provider é o provedor externo de push (FCM em produção)
type Provider interface {
	Validate(ctx context.Context, token string) error
	Send(ctx context.Context, token string, n Notification) (string, error)
	SendMulticast(ctx context.Context, tokens []string, n Notification) (*ProviderBatch, error)
}
