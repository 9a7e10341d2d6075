package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	mu             sync.Mutex
	multicastCalls [][]string
	sendCalls      []string
	failChunk      map[int]error    // índice da chamada multicast -> erro da chamada inteira
	tokenErrs      map[string]error // erros por token
	validateErrs   map[string]error
}

func (f *fakeProvider) Validate(_ context.Context, token string) error {
	return f.validateErrs[token]
}

func (f *fakeProvider) Send(_ context.Context, token string, _ Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls = append(f.sendCalls, token)
	if err := f.tokenErrs[token]; err != nil {
		return "", err
	}
	return "msg-" + token, nil
}

func (f *fakeProvider) SendMulticast(_ context.Context, tokens []string, _ Notification) (*ProviderBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.multicastCalls)
	f.multicastCalls = append(f.multicastCalls, append([]string(nil), tokens...))
	if err := f.failChunk[call]; err != nil {
		return nil, err
	}

	batch := &ProviderBatch{}
	for _, token := range tokens {
		if err := f.tokenErrs[token]; err != nil {
			batch.FailureCount++
			batch.Responses = append(batch.Responses, ProviderResponse{Err: err})
			continue
		}
		batch.SuccessCount++
		batch.Responses = append(batch.Responses, ProviderResponse{MessageID: "msg-" + token})
	}
	return batch, nil
}

func tokens(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("token-%03d", i)
	}
	return out
}

var unregistered = &DeliveryError{Kind: KindEndpointInvalid, Code: "registration-token-not-registered"}

func TestGateway_SendBatch_ChunksAt500(t *testing.T) {
	provider := &fakeProvider{}
	gw := NewGateway(provider, MaxBatchSize, zap.NewNop())

	result := gw.SendBatch(context.Background(), tokens(501), Notification{Title: "t"})

	require.Len(t, provider.multicastCalls, 2)
	assert.Len(t, provider.multicastCalls[0], 500)
	assert.Len(t, provider.multicastCalls[1], 1)
	assert.Equal(t, 501, result.SuccessCount)
	assert.Zero(t, result.FailureCount)
	assert.Len(t, result.Outcomes, 501)
}

func TestGateway_SendBatch_FailedChunkDoesNotAbortNext(t *testing.T) {
	provider := &fakeProvider{failChunk: map[int]error{0: errors.New("connection reset")}}
	gw := NewGateway(provider, MaxBatchSize, zap.NewNop())

	result := gw.SendBatch(context.Background(), tokens(501), Notification{Title: "t"})

	require.Len(t, provider.multicastCalls, 2)
	assert.Equal(t, 500, result.FailureCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, KindTransient, result.Outcomes[0].Kind())
	assert.False(t, result.Outcomes[500].Failed())
	assert.Empty(t, result.InvalidEndpoints())
}

func TestGateway_SendBatch_ChunkLevelInvalidIsTransient(t *testing.T) {
	callErr := &DeliveryError{Kind: KindEndpointInvalid, Code: "invalid-registration-token"}
	provider := &fakeProvider{failChunk: map[int]error{0: callErr}}
	gw := NewGateway(provider, MaxBatchSize, zap.NewNop())

	result := gw.SendBatch(context.Background(), []string{"a", "b", "c"}, Notification{})

	assert.Equal(t, 3, result.FailureCount)
	assert.Empty(t, result.InvalidEndpoints())
	for _, o := range result.Outcomes {
		assert.Equal(t, KindTransient, o.Kind())
		assert.ErrorIs(t, o.Err, callErr)
	}
}

func TestGateway_SendBatch_PerTokenOutcomes(t *testing.T) {
	provider := &fakeProvider{tokenErrs: map[string]error{
		"token-001": unregistered,
		"token-002": errors.New("timeout"),
	}}
	gw := NewGateway(provider, 2, zap.NewNop())

	result := gw.SendBatch(context.Background(), tokens(3), Notification{})

	require.Len(t, provider.multicastCalls, 2)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, "msg-token-000", result.Outcomes[0].MessageID)
	assert.Equal(t, KindEndpointInvalid, result.Outcomes[1].Kind())
	assert.Equal(t, KindTransient, result.Outcomes[2].Kind())
	assert.Equal(t, []string{"token-001"}, result.InvalidEndpoints())
}

func TestGateway_SendBatch_MissingResponsesAreFailures(t *testing.T) {
	gw := NewGateway(&shortProvider{}, MaxBatchSize, zap.NewNop())

	result := gw.SendBatch(context.Background(), tokens(3), Notification{})

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, KindTransient, result.Outcomes[2].Kind())
}

type shortProvider struct{ fakeProvider }

func (*shortProvider) SendMulticast(context.Context, []string, Notification) (*ProviderBatch, error) {
	return &ProviderBatch{SuccessCount: 1, Responses: []ProviderResponse{{MessageID: "only-one"}}}, nil
}

func TestGateway_Send(t *testing.T) {
	provider := &fakeProvider{tokenErrs: map[string]error{"bad": unregistered}}
	gw := NewGateway(provider, 0, zap.NewNop())

	ok := gw.Send(context.Background(), "good", Notification{})
	assert.False(t, ok.Failed())
	assert.Equal(t, "msg-good", ok.MessageID)

	bad := gw.Send(context.Background(), "bad", Notification{})
	assert.True(t, IsEndpointInvalid(bad.Err))

	empty := gw.Send(context.Background(), "", Notification{})
	assert.ErrorIs(t, empty.Err, ErrEmptyEndpoint)
	assert.Equal(t, []string{"good", "bad"}, provider.sendCalls)
}

func TestGateway_Validate(t *testing.T) {
	provider := &fakeProvider{validateErrs: map[string]error{
		"stale": unregistered,
		"flaky": errors.New("503"),
	}}
	gw := NewGateway(provider, MaxBatchSize, zap.NewNop())

	assert.NoError(t, gw.Validate(context.Background(), "fresh"))
	assert.True(t, IsEndpointInvalid(gw.Validate(context.Background(), "stale")))
	assert.Equal(t, KindTransient, Classify(gw.Validate(context.Background(), "flaky")))
	assert.True(t, IsEndpointInvalid(gw.Validate(context.Background(), "")))
}

func TestDeliveryError_Classify(t *testing.T) {
	wrapped := fmt.Errorf("send: %w", &DeliveryError{Kind: KindRateLimited, Code: "quota-exceeded"})
	assert.Equal(t, KindRateLimited, Classify(wrapped))
	assert.Equal(t, KindTransient, Classify(errors.New("boom")))
	assert.False(t, IsEndpointInvalid(nil))
	assert.Contains(t, unregistered.Error(), "endpoint_invalid")
}
