package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrTaskNotFound = errors.New("no pending task found")

// CreateTask inserts a new pending task and returns its id.
// Empty description and due date are stored as NULL.
func (m *Manager) CreateTask(ctx context.Context, title, description, dueDate, priority, createdAt string) (int64, error) {
	query := `
		INSERT INTO tareas (titulo, descripcion, fecha_creacion, fecha_limite, prioridad)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := m.insertReturningID(
		ctx,
		query,
		title,
		sql.NullString{String: description, Valid: description != ""},
		createdAt,
		sql.NullString{String: dueDate, Valid: dueDate != ""},
		priority,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}
	return id, nil
}

// ListTasks returns tasks narrowed by filter ("todas", "pendientes",
// "completadas") and ordered either by due date or by priority rank.
func (m *Manager) ListTasks(ctx context.Context, filter, orderBy string) ([]Task, error) {
	query := `SELECT id, titulo, descripcion, fecha_creacion, fecha_limite, prioridad, completada FROM tareas`

	switch filter {
	case FilterPending:
		query += ` WHERE completada = ?`
	case FilterCompleted:
		query += ` WHERE completada = ?`
	}

	switch orderBy {
	case "prioridad":
		query += ` ORDER BY CASE prioridad WHEN 'alta' THEN 1 WHEN 'media' THEN 2 WHEN 'baja' THEN 3 END`
	default:
		query += ` ORDER BY fecha_limite`
	}

	var args []interface{}
	if filter == FilterPending {
		args = append(args, false)
	} else if filter == FilterCompleted {
		args = append(args, true)
	}

	rows, err := m.db.QueryContext(ctx, m.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// FindPendingTaskByID looks up a single pending task by id.
func (m *Manager) FindPendingTaskByID(ctx context.Context, id int64) (*Task, error) {
	query := `
		SELECT id, titulo, descripcion, fecha_creacion, fecha_limite, prioridad, completada
		FROM tareas
		WHERE id = ? AND completada = ?
	`
	var t Task
	err := m.db.QueryRowContext(ctx, m.rebind(query), id, false).Scan(
		&t.ID, &t.Title, &t.Description, &t.CreatedAt, &t.DueDate, &t.Priority, &t.Completed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task by id: %w", err)
	}
	return &t, nil
}

// FindPendingTaskByTitle returns the first pending task, in insertion order,
// whose title contains the given fragment. The match is case-sensitive; when
// several pending tasks share the fragment the earliest row wins.
func (m *Manager) FindPendingTaskByTitle(ctx context.Context, fragment string) (*Task, error) {
	query := `
		SELECT id, titulo, descripcion, fecha_creacion, fecha_limite, prioridad, completada
		FROM tareas
		WHERE completada = ?
		ORDER BY id
	`
	rows, err := m.db.QueryContext(ctx, m.rebind(query), false)
	if err != nil {
		return nil, fmt.Errorf("failed to find task by title: %w", err)
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		return nil, err
	}

	for i := range tasks {
		if strings.Contains(tasks[i].Title, fragment) {
			return &tasks[i], nil
		}
	}
	return nil, ErrTaskNotFound
}

// CompleteTask marks a task as completed. It only flips pending rows, so
// completing an already-completed task reports ErrTaskNotFound.
func (m *Manager) CompleteTask(ctx context.Context, id int64) error {
	query := `UPDATE tareas SET completada = ? WHERE id = ? AND completada = ?`
	res, err := m.db.ExecContext(ctx, m.rebind(query), true, id, false)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// InsertMovement records a financial movement. Amounts are stored as decimal
// strings so both backends keep exact values.
func (m *Manager) InsertMovement(ctx context.Context, kind string, amount decimal.Decimal, category, description, date string) (int64, error) {
	query := `
		INSERT INTO finanzas (tipo, monto, categoria, descripcion, fecha)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := m.insertReturningID(
		ctx,
		query,
		kind,
		amount.String(),
		category,
		sql.NullString{String: description, Valid: description != ""},
		date,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert movement: %w", err)
	}
	return id, nil
}

// MovementsSince returns movements with date >= since, in insertion order.
// An empty since returns the whole log.
func (m *Manager) MovementsSince(ctx context.Context, since string) ([]Movement, error) {
	query := `SELECT id, tipo, monto, categoria, descripcion, fecha FROM finanzas`
	var args []interface{}
	if since != "" {
		query += ` WHERE fecha >= ?`
		args = append(args, since)
	}
	query += ` ORDER BY id`

	rows, err := m.db.QueryContext(ctx, m.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

// RecentMovements returns the latest movements by insertion order, newest
// first.
func (m *Manager) RecentMovements(ctx context.Context, limit int) ([]Movement, error) {
	query := `
		SELECT id, tipo, monto, categoria, descripcion, fecha
		FROM finanzas
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := m.db.QueryContext(ctx, m.rebind(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent movements: %w", err)
	}
	defer rows.Close()

	return scanMovements(rows)
}

// SaveConversation appends a processed turn to the conversation log.
func (m *Manager) SaveConversation(ctx context.Context, chatID, message, reply, timestamp string) error {
	query := `
		INSERT INTO conversaciones (chat_id, mensaje, respuesta, timestamp)
		VALUES (?, ?, ?, ?)
	`
	_, err := m.db.ExecContext(ctx, m.rebind(query), chatID, message, reply, timestamp)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// SaveChatMessage appends a message to the relay's raw chat log and returns
// the stored record with its id filled in.
func (m *Manager) SaveChatMessage(ctx context.Context, msg ChatMessage) (ChatMessage, error) {
	query := `
		INSERT INTO mensajes (platform, sender, chat_id, message, timestamp, is_from_assistant)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := m.insertReturningID(
		ctx,
		query,
		msg.Platform,
		msg.Sender,
		msg.ChatID,
		msg.Message,
		msg.Timestamp,
		msg.IsFromAssistant,
	)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("failed to save chat message: %w", err)
	}

	msg.ID = id
	return msg, nil
}

// ListChatMessages returns the full chat log, newest first.
func (m *Manager) ListChatMessages(ctx context.Context) ([]ChatMessage, error) {
	query := `
		SELECT id, platform, sender, chat_id, message, timestamp, is_from_assistant
		FROM mensajes
		ORDER BY id DESC
	`
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		err := rows.Scan(
			&msg.ID,
			&msg.Platform,
			&msg.Sender,
			&msg.ChatID,
			&msg.Message,
			&msg.Timestamp,
			&msg.IsFromAssistant,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat message rows: %w", err)
	}
	return messages, nil
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var t Task
		err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.CreatedAt, &t.DueDate, &t.Priority, &t.Completed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

func scanMovements(rows *sql.Rows) ([]Movement, error) {
	var movements []Movement
	for rows.Next() {
		var mv Movement
		var amount string
		err := rows.Scan(&mv.ID, &mv.Kind, &amount, &mv.Category, &mv.Description, &mv.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement row: %w", err)
		}
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		mv.Amount = parsed
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating movement rows: %w", err)
	}
	return movements, nil
}
