// Package endpoints mantém a saúde dos device tokens: valida antes do envio
// e remove dos cadastros os tokens que o provedor rejeita permanentemente.
package endpoints

import (
	"context"
	"fmt"

	"eva-notify/internal/metrics"
	"eva-notify/internal/push"
	"eva-notify/pkg/models"

	"go.uber.org/zap"
)

// Validator faz o dry-run de um token
type Validator interface {
	Validate(ctx context.Context, endpoint string) error
}

// Store anula os tokens nos registros donos e retorna quem foi afetado
type Store interface {
	ClearDeviceTokens(ctx context.Context, tokens []string) ([]models.Recipient, error)
}

// Mailer envia o aviso de token removido
type Mailer interface {
	SendEndpointRemovedNotice(to, recipientName string) error
}

// Tracker valida e remove device tokens em nome do Dispatcher
type Tracker struct {
	validator   Validator
	store       Store
	mailer      Mailer
	prevalidate bool
	logger      *zap.Logger
}

// NewTracker cria o tracker. mailer pode ser nil.
func NewTracker(validator Validator, store Store, mailer Mailer, prevalidate bool, logger *zap.Logger) *Tracker {
	return &Tracker{
		validator:   validator,
		store:       store,
		mailer:      mailer,
		prevalidate: prevalidate,
		logger:      logger,
	}
}

// Validate retorna false apenas para tokens vazios ou rejeitados permanentemente.
// Uma falha transitória no dry-run não condena o token.
func (t *Tracker) Validate(ctx context.Context, endpoint string) bool {
	if endpoint == "" {
		return false
	}

	err := t.validator.Validate(ctx, endpoint)
	if err == nil {
		return true
	}
	if push.IsEndpointInvalid(err) {
		return false
	}

	t.logger.Warn("⚠️ Validação do token falhou de forma transitória",
		zap.String("token", mask(endpoint)),
		zap.Error(err),
	)
	return true
}

// Screen remove duplicados e vazios, faz a pré-validação e remove os tokens
// inválidos do cadastro. Retorna apenas os tokens aptos para envio.
func (t *Tracker) Screen(ctx context.Context, endpoints []string) []string {
	seen := make(map[string]struct{}, len(endpoints))
	candidates := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		candidates = append(candidates, e)
	}

	if !t.prevalidate {
		return candidates
	}

	valid := make([]string, 0, len(candidates))
	var invalid []string
	for _, e := range candidates {
		if t.Validate(ctx, e) {
			valid = append(valid, e)
		} else {
			invalid = append(invalid, e)
		}
	}

	if len(invalid) > 0 {
		if err := t.RemoveInvalid(ctx, invalid...); err != nil {
			t.logger.Error("❌ Erro ao remover tokens inválidos", zap.Error(err))
		}
	}

	return valid
}

// RemoveInvalid anula os tokens nos registros de idosos e usuários
func (t *Tracker) RemoveInvalid(ctx context.Context, endpoints ...string) error {
	tokens := make([]string, 0, len(endpoints))
	seen := make(map[string]struct{}, len(endpoints))
	for _, e := range endpoints {
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		tokens = append(tokens, e)
	}
	if len(tokens) == 0 {
		return nil
	}

	owners, err := t.store.ClearDeviceTokens(ctx, tokens)
	if err != nil {
		return fmt.Errorf("clear device tokens: %w", err)
	}

	metrics.ObservePruned(len(owners))
	for _, owner := range owners {
		t.logger.Info("🧹 Token de push removido",
			zap.String("owner_kind", string(owner.Kind)),
			zap.Int64("owner_id", owner.ID),
			zap.String("token", mask(owner.DeviceToken)),
		)
		t.notifyOwner(owner)
	}

	return nil
}

func (t *Tracker) notifyOwner(owner models.Recipient) {
	if t.mailer == nil || owner.Email == "" {
		return
	}
	if err := t.mailer.SendEndpointRemovedNotice(owner.Email, owner.Name); err != nil {
		t.logger.Warn("⚠️ Falha ao enviar aviso de token removido",
			zap.Int64("owner_id", owner.ID),
			zap.Error(err),
		)
	}
}

// mask evita logar o token inteiro
func mask(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10] + "..."
}
