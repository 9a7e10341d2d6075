package database

import (
	"context"
	"fmt"

	"eva-notify/pkg/models"

	"github.com/lib/pq"
)

// Tabelas que guardam device_token
var tokenOwners = []struct {
	table string
	kind  models.RecipientKind
}{
	{"idosos", models.RecipientIdoso},
	{"usuarios", models.RecipientUsuario},
}

// ClearDeviceTokens anula device_token nos idosos e usuários que possuem
// algum dos tokens e retorna os donos afetados. Outras colunas não mudam.
func (db *DB) ClearDeviceTokens(ctx context.Context, tokens []string) ([]models.Recipient, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var owners []models.Recipient
	for _, owner := range tokenOwners {
		query := fmt.Sprintf(`
			WITH alvo AS (
				SELECT id, device_token FROM %[1]s WHERE device_token = ANY($1) FOR UPDATE
			)
			UPDATE %[1]s t
			SET device_token = NULL
			FROM alvo
			WHERE t.id = alvo.id
			RETURNING t.id, t.nome, COALESCE(t.email, ''), alvo.device_token
		`, owner.table)

		rows, err := tx.QueryContext(ctx, query, pq.Array(tokens))
		if err != nil {
			return nil, fmt.Errorf("failed to clear tokens in %s: %w", owner.table, err)
		}

		for rows.Next() {
			r := models.Recipient{Kind: owner.kind}
			if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.DeviceToken); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s: %w", owner.table, err)
			}
			owners = append(owners, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", owner.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit token cleanup: %w", err)
	}

	return owners, nil
}
