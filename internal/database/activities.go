package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eva-notify/pkg/models"
)

// UpcomingActivities lista atividades pendentes não notificadas com início em [from, to]
func (db *DB) UpcomingActivities(ctx context.Context, from, to time.Time) ([]models.Activity, error) {
	query := `
		SELECT a.id, a.idoso_id, a.titulo, a.inicio, a.fim, a.status, a.notificado, i.device_token
		FROM atividades a
		JOIN idosos i ON i.id = a.idoso_id
		WHERE a.inicio >= $1
		  AND a.inicio <= $2
		  AND a.notificado = false
		  AND a.status = $3
		ORDER BY a.inicio ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, from, to, models.ActivityStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query atividades: %w", err)
	}
	defer rows.Close()

	var activities []models.Activity
	for rows.Next() {
		var a models.Activity
		var token sql.NullString
		if err := rows.Scan(&a.ID, &a.IdosoID, &a.Title, &a.StartAt, &a.EndAt, &a.Status, &a.Notified, &token); err != nil {
			return nil, fmt.Errorf("failed to scan atividade: %w", err)
		}
		a.DeviceToken = token.String
		activities = append(activities, a)
	}

	return activities, rows.Err()
}

// MarkActivityNotified liga o flag one-shot. Retorna false se já estava ligado.
func (db *DB) MarkActivityNotified(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE atividades SET notificado = true WHERE id = $1 AND notificado = false`
	return db.execFlag(ctx, "atividade", query, id)
}
