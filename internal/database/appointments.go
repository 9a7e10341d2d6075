package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eva-notify/pkg/models"
)

// reminderColumn mapeia o lembrete para a coluna do flag one-shot
func reminderColumn(r models.AppointmentReminder) (string, error) {
	switch r {
	case models.ReminderOneHour:
		return "notificado_1h", nil
	case models.ReminderOneDay:
		return "notificado_24h", nil
	default:
		return "", fmt.Errorf("unknown appointment reminder %q", r)
	}
}

// AppointmentsInWindow lista consultas ainda não lembradas com data_hora na
// janela. A janela de 1h é [from, to]; a de 24h é (from, to] para não
// sobrepor a anterior.
func (db *DB) AppointmentsInWindow(ctx context.Context, reminder models.AppointmentReminder, from, to time.Time) ([]models.Appointment, error) {
	column, err := reminderColumn(reminder)
	if err != nil {
		return nil, err
	}

	lower := ">="
	if reminder == models.ReminderOneDay {
		lower = ">"
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.idoso_id, c.data_hora, c.titulo, c.notificado_1h, c.notificado_24h, i.device_token
		FROM consultas c
		JOIN idosos i ON i.id = c.idoso_id
		WHERE c.data_hora %s $1
		  AND c.data_hora <= $2
		  AND c.%s = false
		ORDER BY c.data_hora ASC
	`, lower, column)

	rows, err := db.conn.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query consultas: %w", err)
	}
	defer rows.Close()

	var appointments []models.Appointment
	for rows.Next() {
		var a models.Appointment
		var token sql.NullString
		if err := rows.Scan(&a.ID, &a.IdosoID, &a.ScheduledAt, &a.Title, &a.Notified1h, &a.Notified24h, &token); err != nil {
			return nil, fmt.Errorf("failed to scan consulta: %w", err)
		}
		a.DeviceToken = token.String
		appointments = append(appointments, a)
	}

	return appointments, rows.Err()
}

// MarkAppointmentReminded liga o flag do lembrete. Retorna false se já estava ligado.
func (db *DB) MarkAppointmentReminded(ctx context.Context, id int64, reminder models.AppointmentReminder) (bool, error) {
	column, err := reminderColumn(reminder)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`UPDATE consultas SET %[1]s = true WHERE id = $1 AND %[1]s = false`, column)
	return db.execFlag(ctx, "consulta", query, id)
}

func (db *DB) execFlag(ctx context.Context, entity, query string, args ...interface{}) (bool, error) {
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update %s: %w", entity, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
