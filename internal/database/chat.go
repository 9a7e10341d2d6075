package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eva-notify/pkg/models"
)

// MessageState retorna o status de entrega atual da mensagem
func (db *DB) MessageState(ctx context.Context, id int64) (models.DeliveryState, error) {
	var state string
	err := db.conn.QueryRowContext(ctx, `SELECT status_entrega FROM mensagens_chat WHERE id = $1`, id).Scan(&state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("mensagem %d not found", id)
		}
		return "", fmt.Errorf("failed to query mensagem: %w", err)
	}
	return models.DeliveryState(state), nil
}

// CommunityRecipients lista os membros da comunidade, exceto o remetente,
// que possuem device token
func (db *DB) CommunityRecipients(ctx context.Context, communityID, excludeUserID int64) ([]models.Recipient, error) {
	query := `
		SELECT u.id, u.nome, COALESCE(u.email, ''), u.device_token
		FROM comunidade_membros cm
		JOIN usuarios u ON u.id = cm.usuario_id
		WHERE cm.comunidade_id = $1
		  AND u.id <> $2
		  AND u.device_token IS NOT NULL
		  AND u.device_token <> ''
		ORDER BY u.id
	`

	rows, err := db.conn.QueryContext(ctx, query, communityID, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query membros: %w", err)
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		r := models.Recipient{Kind: models.RecipientUsuario}
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.DeviceToken); err != nil {
			return nil, fmt.Errorf("failed to scan membro: %w", err)
		}
		recipients = append(recipients, r)
	}

	return recipients, rows.Err()
}

// SetMessageState grava o resultado da entrega. Mensagens já notificadas não
// voltam de estado.
func (db *DB) SetMessageState(ctx context.Context, id int64, state models.DeliveryState, errText string) error {
	query := `
		UPDATE mensagens_chat
		SET status_entrega = $1,
		    erro_entrega = NULLIF($2, '')
		WHERE id = $3
		  AND status_entrega <> $4
	`
	if _, err := db.conn.ExecContext(ctx, query, string(state), errText, id, string(models.DeliveryNotified)); err != nil {
		return fmt.Errorf("failed to update mensagem: %w", err)
	}
	return nil
}

// UndeliveredMessages lista mensagens pendentes ou com falha criadas entre since e until
func (db *DB) UndeliveredMessages(ctx context.Context, since, until time.Time, limit int) ([]models.ChatMessage, error) {
	query := `
		SELECT m.id, m.comunidade_id, m.remetente_id, COALESCE(u.nome, ''), m.conteudo, m.criado_em, m.status_entrega
		FROM mensagens_chat m
		LEFT JOIN usuarios u ON u.id = m.remetente_id
		WHERE m.status_entrega IN ($1, $2)
		  AND m.criado_em >= $3
		  AND m.criado_em <= $4
		ORDER BY m.criado_em ASC
		LIMIT $5
	`

	rows, err := db.conn.QueryContext(ctx, query,
		string(models.DeliveryPending), string(models.DeliveryFailed), since, until, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query mensagens: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var state string
		if err := rows.Scan(&m.ID, &m.CommunityID, &m.SenderID, &m.SenderName, &m.Body, &m.CreatedAt, &state); err != nil {
			return nil, fmt.Errorf("failed to scan mensagem: %w", err)
		}
		m.DeliveryState = models.DeliveryState(state)
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
