package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eva-notify/pkg/models"
)

// DueTreatments lista tratamentos ativos em now cujo idoso tem device token
func (db *DB) DueTreatments(ctx context.Context, now time.Time) ([]models.Treatment, error) {
	query := `
		SELECT t.id, t.idoso_id, i.nome, t.medicamento_id, m.nome,
		       t.data_inicio, t.data_fim, t.dosagem, t.frequencia,
		       t.proxima_dose, t.ultima_notificacao, t.notificacoes_ativas, i.device_token
		FROM tratamentos t
		JOIN idosos i ON i.id = t.idoso_id
		JOIN medicamentos m ON m.id = t.medicamento_id
		WHERE t.notificacoes_ativas = true
		  AND t.data_inicio <= $1
		  AND t.data_fim >= $1
		  AND i.device_token IS NOT NULL
		  AND i.device_token <> ''
		ORDER BY t.id
	`

	rows, err := db.conn.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query tratamentos: %w", err)
	}
	defer rows.Close()

	var treatments []models.Treatment
	for rows.Next() {
		var t models.Treatment
		var nextDue, lastNotified sql.NullTime
		err := rows.Scan(
			&t.ID, &t.IdosoID, &t.IdosoNome, &t.MedicationID, &t.MedicationName,
			&t.StartAt, &t.EndAt, &t.Dose, &t.Frequency,
			&nextDue, &lastNotified, &t.NotificationsEnabled, &t.DeviceToken,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tratamento: %w", err)
		}
		if nextDue.Valid {
			t.NextDueAt = &nextDue.Time
		}
		if lastNotified.Valid {
			t.LastNotifiedAt = &lastNotified.Time
		}
		treatments = append(treatments, t)
	}

	return treatments, rows.Err()
}

// AdvanceTreatment registra a notificação da dose e agenda a próxima
func (db *DB) AdvanceTreatment(ctx context.Context, id int64, notifiedAt, nextDue time.Time) error {
	query := `
		UPDATE tratamentos
		SET ultima_notificacao = $1,
		    proxima_dose = $2
		WHERE id = $3
	`
	return db.execOne(ctx, "tratamento", query, notifiedAt, nextDue, id)
}

// CompleteTreatment registra a última dose do curso e desliga as notificações
func (db *DB) CompleteTreatment(ctx context.Context, id int64, notifiedAt time.Time) error {
	query := `
		UPDATE tratamentos
		SET ultima_notificacao = $1,
		    proxima_dose = NULL,
		    notificacoes_ativas = false
		WHERE id = $2
	`
	return db.execOne(ctx, "tratamento", query, notifiedAt, id)
}

func (db *DB) execOne(ctx context.Context, entity, query string, args ...interface{}) error {
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", entity, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s not found", entity)
	}

	return nil
}
