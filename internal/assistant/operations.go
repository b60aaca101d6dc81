package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/user/whatsapp-assistant/internal/db"
)

const dateLayout = "2006-01-02"

// Store is the slice of the ledger store the domain operations need.
// *db.Manager satisfies it.
type Store interface {
	CreateTask(ctx context.Context, title, description, dueDate, priority, createdAt string) (int64, error)
	ListTasks(ctx context.Context, filter, orderBy string) ([]db.Task, error)
	FindPendingTaskByID(ctx context.Context, id int64) (*db.Task, error)
	FindPendingTaskByTitle(ctx context.Context, fragment string) (*db.Task, error)
	CompleteTask(ctx context.Context, id int64) error
	InsertMovement(ctx context.Context, kind string, amount decimal.Decimal, category, description, date string) (int64, error)
	MovementsSince(ctx context.Context, since string) ([]db.Movement, error)
	RecentMovements(ctx context.Context, limit int) ([]db.Movement, error)
	SaveConversation(ctx context.Context, chatID, message, reply, timestamp string) error
}

// Service implements the seven user-visible operations over the ledger
// store. Every method returns a user-facing string; storage failures are
// logged and degrade to the generic apology, they never propagate.
type Service struct {
	store  Store
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(store Store, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// AddTask creates a pending task and confirms with its title.
func (s *Service) AddTask(ctx context.Context, title, description, dueDate, priority string) string {
	created := s.now().Format(dateLayout)
	if _, err := s.store.CreateTask(ctx, title, description, dueDate, priority, created); err != nil {
		s.logger.Warnw("add task failed", "error", err)
		return fallbackReply
	}
	return fmt.Sprintf("✅ Tarea '%s' agregada correctamente.", title)
}

var priorityMarkers = map[string]string{
	db.PriorityHigh:   "🔴",
	db.PriorityMedium: "🟠",
	db.PriorityLow:    "🟢",
}

// ListTasks renders the task list for a filter, ordered by due date.
func (s *Service) ListTasks(ctx context.Context, filter string) string {
	tasks, err := s.store.ListTasks(ctx, filter, "fecha")
	if err != nil {
		s.logger.Warnw("list tasks failed", "error", err)
		return fallbackReply
	}

	if len(tasks) == 0 {
		return "No hay tareas para mostrar."
	}

	var b strings.Builder
	b.WriteString("📋 Lista de tareas:\n\n")
	for _, t := range tasks {
		state := "⏳"
		if t.Completed {
			state = "✅"
		}
		due := ""
		if t.DueDate.Valid {
			due = fmt.Sprintf(" (Vence: %s)", t.DueDate.String)
		}
		fmt.Fprintf(&b, "%s %s [%d] %s%s\n", state, priorityMarkers[t.Priority], t.ID, t.Title, due)
	}
	return b.String()
}

// CompleteTaskByID marks the pending task with the given id as completed.
func (s *Service) CompleteTaskByID(ctx context.Context, id int64) string {
	task, err := s.store.FindPendingTaskByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			return fmt.Sprintf("❌ No se encontró una tarea pendiente con ID %d.", id)
		}
		s.logger.Warnw("complete task lookup failed", "id", id, "error", err)
		return fallbackReply
	}
	return s.markCompleted(ctx, task.ID, task.Title)
}

// CompleteTaskByTitle completes the first pending task, in insertion order,
// whose title contains the fragment.
func (s *Service) CompleteTaskByTitle(ctx context.Context, fragment string) string {
	if fragment == "" {
		return "❌ Error: Debes proporcionar el ID o el título de la tarea."
	}

	task, err := s.store.FindPendingTaskByTitle(ctx, fragment)
	if err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			return fmt.Sprintf("❌ No se encontró una tarea pendiente con título similar a '%s'.", fragment)
		}
		s.logger.Warnw("complete task lookup failed", "title", fragment, "error", err)
		return fallbackReply
	}
	return s.markCompleted(ctx, task.ID, fragment)
}

func (s *Service) markCompleted(ctx context.Context, id int64, title string) string {
	if err := s.store.CompleteTask(ctx, id); err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			return fmt.Sprintf("❌ No se encontró una tarea pendiente con ID %d.", id)
		}
		s.logger.Warnw("complete task failed", "id", id, "error", err)
		return fallbackReply
	}
	return fmt.Sprintf("✅ Tarea '%s' marcada como completada.", title)
}

// RegisterMovement records an expense or income. The date defaults to today.
func (s *Service) RegisterMovement(ctx context.Context, kind string, amount decimal.Decimal, category, description, date string) string {
	if date == "" {
		date = s.now().Format(dateLayout)
	}

	if _, err := s.store.InsertMovement(ctx, kind, amount, category, description, date); err != nil {
		s.logger.Warnw("register movement failed", "kind", kind, "error", err)
		return fallbackReply
	}

	label := "Gasto"
	if kind == db.MovementIncome {
		label = "Ingreso"
	}
	return fmt.Sprintf("✅ %s de $%s en '%s' registrado correctamente.", label, amount.StringFixed(2), category)
}

// FinancialSummary aggregates income and expenses inside the period's
// window and breaks expenses down by category.
func (s *Service) FinancialSummary(ctx context.Context, period string) string {
	since := s.periodStart(period)

	movements, err := s.store.MovementsSince(ctx, since)
	if err != nil {
		s.logger.Warnw("financial summary failed", "period", period, "error", err)
		return fallbackReply
	}

	totalIncome := decimal.Zero
	totalExpense := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	var order []string

	for _, mv := range movements {
		switch mv.Kind {
		case db.MovementIncome:
			totalIncome = totalIncome.Add(mv.Amount)
		case db.MovementExpense:
			totalExpense = totalExpense.Add(mv.Amount)
			if _, seen := byCategory[mv.Category]; !seen {
				order = append(order, mv.Category)
			}
			byCategory[mv.Category] = byCategory[mv.Category].Add(mv.Amount)
		}
	}

	if totalIncome.IsZero() && totalExpense.IsZero() {
		return fmt.Sprintf("No hay movimientos financieros registrados en este %s.", period)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💰 Resumen financiero (%s):\n\n", period)
	fmt.Fprintf(&b, "Total de ingresos: $%s\n", totalIncome.StringFixed(2))
	fmt.Fprintf(&b, "Total de gastos: $%s\n", totalExpense.StringFixed(2))
	fmt.Fprintf(&b, "Balance: $%s\n\n", totalIncome.Sub(totalExpense).StringFixed(2))

	// The percentage divides by total expenses; skip the breakdown entirely
	// when that total is zero.
	if len(byCategory) > 0 && totalExpense.IsPositive() {
		sortCategories(order, byCategory)
		b.WriteString("Desglose de gastos por categoría:\n")
		for _, cat := range order {
			amount := byCategory[cat]
			pct := amount.Div(totalExpense).Mul(decimal.NewFromInt(100)).InexactFloat64()
			fmt.Fprintf(&b, "- %s: $%s (%.1f%%)\n", cat, amount.StringFixed(2), pct)
		}
	}
	return b.String()
}

// periodStart computes the inclusive lower bound of a summary window.
func (s *Service) periodStart(period string) string {
	today := s.now()
	switch period {
	case "dia":
		return today.Format(dateLayout)
	case "semana":
		return today.AddDate(0, 0, -7).Format(dateLayout)
	case "año":
		return fmt.Sprintf("%d-01-01", today.Year())
	default: // mes
		return fmt.Sprintf("%d-%02d-01", today.Year(), int(today.Month()))
	}
}

// CurrentBalance reports income minus expenses over all time plus the five
// most recent movements, newest first.
func (s *Service) CurrentBalance(ctx context.Context) string {
	movements, err := s.store.MovementsSince(ctx, "")
	if err != nil {
		s.logger.Warnw("balance query failed", "error", err)
		return fallbackReply
	}

	balance := decimal.Zero
	for _, mv := range movements {
		if mv.Kind == db.MovementIncome {
			balance = balance.Add(mv.Amount)
		} else {
			balance = balance.Sub(mv.Amount)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💵 Saldo actual: $%s\n\n", balance.StringFixed(2))

	recent, err := s.store.RecentMovements(ctx, 5)
	if err != nil {
		s.logger.Warnw("recent movements query failed", "error", err)
		return b.String()
	}

	if len(recent) > 0 {
		b.WriteString("Últimos movimientos:\n")
		for _, mv := range recent {
			marker := "➖"
			if mv.Kind == db.MovementIncome {
				marker = "➕"
			}
			fmt.Fprintf(&b, "%s %s: %s - $%s\n", marker, mv.Date, mv.Category, mv.Amount.StringFixed(2))
		}
	}
	return b.String()
}

// sortCategories orders category names by descending total, name ascending
// on ties, so listings are stable.
func sortCategories(order []string, totals map[string]decimal.Decimal) {
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if !totals[a].Equal(totals[b]) {
			return totals[a].GreaterThan(totals[b])
		}
		return a < b
	})
}
