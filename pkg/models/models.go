package models

import (
	"fmt"
	"time"
)

// Treatment é um curso de medicação agendado para um idoso
type Treatment struct {
	ID                   int64      `json:"id"`
	IdosoID              int64      `json:"idoso_id"`
	IdosoNome            string     `json:"idoso_nome"`
	MedicationID         int64      `json:"medicamento_id"`
	MedicationName       string     `json:"medicamento_nome"`
	StartAt              time.Time  `json:"data_inicio"`
	EndAt                time.Time  `json:"data_fim"`
	Dose                 string     `json:"dosagem"`
	Frequency            string     `json:"frequencia"` // "8h", "1d"
	NextDueAt            *time.Time `json:"proxima_dose,omitempty"`
	LastNotifiedAt       *time.Time `json:"ultima_notificacao,omitempty"`
	NotificationsEnabled bool       `json:"notificacoes_ativas"`
	DeviceToken          string     `json:"-"`
}

// DueAt retorna a próxima dose prevista (início do tratamento se nunca notificado)
func (t Treatment) DueAt() time.Time {
	if t.NextDueAt != nil {
		return *t.NextDueAt
	}
	return t.StartAt
}

// Appointment é uma consulta agendada
type Appointment struct {
	ID          int64     `json:"id"`
	IdosoID     int64     `json:"idoso_id"`
	ScheduledAt time.Time `json:"data_hora"`
	Title       string    `json:"titulo"`
	Notified1h  bool      `json:"notificado_1h"`
	Notified24h bool      `json:"notificado_24h"`
	DeviceToken string    `json:"-"`
}

// AppointmentReminder identifica qual dos lembretes one-shot de uma consulta
type AppointmentReminder string

const (
	ReminderOneHour AppointmentReminder = "1h"
	ReminderOneDay  AppointmentReminder = "24h"
)

// Activity é uma atividade de cuidado planejada
type Activity struct {
	ID          int64     `json:"id"`
	IdosoID     int64     `json:"idoso_id"`
	Title       string    `json:"titulo"`
	StartAt     time.Time `json:"inicio"`
	EndAt       time.Time `json:"fim"`
	Status      string    `json:"status"`
	Notified    bool      `json:"notificado"`
	DeviceToken string    `json:"-"`
}

const ActivityStatusPending = "pendente"

// DeliveryState é o estado de entrega de uma mensagem de chat
type DeliveryState string

const (
	DeliveryPending  DeliveryState = "pending"
	DeliveryNotified DeliveryState = "notified"
	DeliveryFailed   DeliveryState = "notification_failed"
)

// ChatMessage é uma mensagem publicada numa comunidade
type ChatMessage struct {
	ID            int64         `json:"id"`
	CommunityID   int64         `json:"comunidade_id"`
	SenderID      int64         `json:"remetente_id"`
	SenderName    string        `json:"remetente_nome,omitempty"`
	Body          string        `json:"conteudo"`
	CreatedAt     time.Time     `json:"criado_em"`
	DeliveryState DeliveryState `json:"status_entrega"`
}

// RecipientKind identifica a tabela dona de um device token
type RecipientKind string

const (
	RecipientIdoso   RecipientKind = "idoso"
	RecipientUsuario RecipientKind = "usuario"
)

// Recipient é o dono de um endpoint de entrega
type Recipient struct {
	Kind        RecipientKind
	ID          int64
	Name        string
	Email       string
	DeviceToken string
}

// Tipos de payload enviados ao app
const (
	PayloadMedication  = "medication_reminder"
	PayloadAppointment = "appointment_reminder"
	PayloadActivity    = "activity_reminder"
	PayloadChat        = "chat_message"
)

// Payload é o conteúdo estruturado de uma notificação
type Payload struct {
	Type     string
	EntityID int64
	Extra    map[string]string
}

// Data converte o payload para o mapa de dados do push
func (p Payload) Data() map[string]string {
	data := make(map[string]string, len(p.Extra)+2)
	for k, v := range p.Extra {
		data[k] = v
	}
	data["type"] = p.Type
	data["entity_id"] = fmt.Sprintf("%d", p.EntityID)
	return data
}

// NotificationJob é uma notificação transitória para um único endpoint
type NotificationJob struct {
	Endpoint string
	Title    string
	Body     string
	Payload  Payload
}

// BatchJob é uma notificação com fan-out para vários endpoints
type BatchJob struct {
	Endpoints []string
	Title     string
	Body      string
	Payload   Payload
}
