package db

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Movement kinds as stored in the finanzas table.
const (
	MovementExpense = "gasto"
	MovementIncome  = "ingreso"
)

// Task priorities as stored in the tareas table.
const (
	PriorityHigh   = "alta"
	PriorityMedium = "media"
	PriorityLow    = "baja"
)

// Task filters accepted by ListTasks.
const (
	FilterAll       = "todas"
	FilterPending   = "pendientes"
	FilterCompleted = "completadas"
)

type Task struct {
	ID          int64          `db:"id"`
	Title       string         `db:"titulo"`
	Description sql.NullString `db:"descripcion"`
	CreatedAt   string         `db:"fecha_creacion"`
	DueDate     sql.NullString `db:"fecha_limite"`
	Priority    string         `db:"prioridad"`
	Completed   bool           `db:"completada"`
}

type Movement struct {
	ID          int64           `db:"id"`
	Kind        string          `db:"tipo"`
	Amount      decimal.Decimal `db:"monto"`
	Category    string          `db:"categoria"`
	Description sql.NullString  `db:"descripcion"`
	Date        string          `db:"fecha"`
}

type ConversationTurn struct {
	ID        int64  `db:"id"`
	ChatID    string `db:"chat_id"`
	Message   string `db:"mensaje"`
	Reply     string `db:"respuesta"`
	Timestamp string `db:"timestamp"`
}

type ChatMessage struct {
	ID              int64  `db:"id" json:"id"`
	Platform        string `db:"platform" json:"platform"`
	Sender          string `db:"sender" json:"sender"`
	ChatID          string `db:"chat_id" json:"chat_id"`
	Message         string `db:"message" json:"message"`
	Timestamp       string `db:"timestamp" json:"timestamp"`
	IsFromAssistant bool   `db:"is_from_assistant" json:"is_from_assistant"`
}
