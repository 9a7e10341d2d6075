package push

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"eva-notify/pkg/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Canais Android configurados no app EVA
var androidChannels = map[string]string{
	models.PayloadMedication:  "eva_medications",
	models.PayloadAppointment: "eva_appointments",
	models.PayloadActivity:    "eva_activities",
	models.PayloadChat:        "eva_chat",
}

// FirebaseProvider implementa Provider sobre o FCM
type FirebaseProvider struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewFirebaseProvider inicializa o cliente Firebase com suporte a FCM
func NewFirebaseProvider(ctx context.Context, credentialsPath string, logger *zap.Logger) (*FirebaseProvider, error) {
	opt := option.WithCredentialsFile(credentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}

	logger.Info("✅ Firebase service initialized successfully")

	return &FirebaseProvider{client: client, logger: logger}, nil
}

// Validate envia uma mensagem silenciosa em modo dry-run
func (p *FirebaseProvider) Validate(ctx context.Context, token string) error {
	message := &messaging.Message{
		Token: token,
		Data: map[string]string{
			"type": "token_validation",
		},
		Android: &messaging.AndroidConfig{
			Priority: "normal",
		},
	}

	if _, err := p.client.SendDryRun(ctx, message); err != nil {
		return classifyFirebaseError(err, true)
	}
	return nil
}

// Send envia o push para um token
func (p *FirebaseProvider) Send(ctx context.Context, token string, n Notification) (string, error) {
	message := &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
		Data:         withDeliveryMeta(n.Data),
		Android:      androidConfig(n.Data["type"]),
	}

	id, err := p.client.Send(ctx, message)
	if err != nil {
		return "", classifyFirebaseError(err, false)
	}
	return id, nil
}

// SendMulticast envia o mesmo push para até 500 tokens
func (p *FirebaseProvider) SendMulticast(ctx context.Context, tokens []string, n Notification) (*ProviderBatch, error) {
	message := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
		Data:         withDeliveryMeta(n.Data),
		Android:      androidConfig(n.Data["type"]),
	}

	resp, err := p.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, classifyFirebaseError(err, false)
	}

	batch := &ProviderBatch{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
		Responses:    make([]ProviderResponse, len(resp.Responses)),
	}
	for i, r := range resp.Responses {
		if r == nil {
			batch.Responses[i] = ProviderResponse{Err: &DeliveryError{Kind: KindTransient, Code: "missing-response"}}
			continue
		}
		if !r.Success {
			batch.Responses[i] = ProviderResponse{Err: classifyFirebaseError(r.Error, false)}
			continue
		}
		batch.Responses[i] = ProviderResponse{MessageID: r.MessageID}
	}
	return batch, nil
}

func androidConfig(payloadType string) *messaging.AndroidConfig {
	channel, ok := androidChannels[payloadType]
	if !ok {
		channel = "eva_default"
	}
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound:        "default",
			Priority:     messaging.PriorityHigh,
			ChannelID:    channel,
			DefaultSound: true,
		},
	}
}

func withDeliveryMeta(data map[string]string) map[string]string {
	out := make(map[string]string, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	out["notification_id"] = uuid.NewString()
	out["timestamp"] = strconv.FormatInt(time.Now().Unix(), 10)
	return out
}

// fcmErrorClass associa um predicado do SDK a uma classificação.
// dryRunOnly restringe a linha ao Validate, cujo payload é fixo: fora dele
// INVALID_ARGUMENT pode ser a mensagem e não o token.
type fcmErrorClass struct {
	name       string
	match      func(error) bool
	kind       Kind
	code       string
	dryRunOnly bool
}

var fcmErrorClasses = []fcmErrorClass{
	{"not-registered", messaging.IsRegistrationTokenNotRegistered, KindEndpointInvalid, "registration-token-not-registered", false},
	{"sender-id-mismatch", messaging.IsSenderIDMismatch, KindEndpointInvalid, "mismatched-credential", false},
	{"invalid-argument", messaging.IsInvalidArgument, KindEndpointInvalid, "invalid-registration-token", true},
	{"quota-exceeded", messaging.IsQuotaExceeded, KindRateLimited, "quota-exceeded", false},
	{"unavailable", messaging.IsUnavailable, KindTransient, "unavailable", false},
	{"internal", messaging.IsInternal, KindTransient, "internal", false},
}

// classifyFirebaseError converte os códigos do FCM em DeliveryError
func classifyFirebaseError(err error, dryRun bool) error {
	return classifyWith(fcmErrorClasses, err, dryRun)
}

func classifyWith(classes []fcmErrorClass, err error, dryRun bool) error {
	if err == nil {
		return nil
	}
	for _, c := range classes {
		if c.dryRunOnly && !dryRun {
			continue
		}
		if c.match(err) {
			return &DeliveryError{Kind: c.kind, Code: c.code, Err: err}
		}
	}
	return &DeliveryError{Kind: KindTransient, Code: "unknown", Err: err}
}
