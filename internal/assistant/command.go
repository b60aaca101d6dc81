package assistant

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/user/whatsapp-assistant/internal/db"
)

// Command is the decoded form of a model reply. A reply either carries one
// of the seven literal prefixes the oracle is instructed to emit, or it is
// plain conversation passed through verbatim.
type Command interface {
	command()
}

// Conversational is the passthrough case: no recognized prefix.
type Conversational struct {
	Text string
}

type AddTask struct {
	Title       string
	Description string
	DueDate     string
	Priority    string
}

type ListTasks struct {
	Filter string
}

// CompleteTask identifies a task by numeric ID or, failing that, by a title
// fragment. Both zero values mean the payload was empty.
type CompleteTask struct {
	ID    int64
	Title string
}

type RegisterMovement struct {
	Kind        string // db.MovementExpense or db.MovementIncome
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        string
}

type FinancialSummary struct {
	Period string
}

type CurrentBalance struct{}

// Malformed carries the literal user-facing message for a payload that
// matched a prefix but could not be parsed. It never reaches the store.
type Malformed struct {
	Reply string
}

func (Conversational) command()   {}
func (AddTask) command()          {}
func (ListTasks) command()        {}
func (CompleteTask) command()     {}
func (RegisterMovement) command() {}
func (FinancialSummary) command() {}
func (CurrentBalance) command()   {}
func (Malformed) command()        {}

// Command prefixes, tested in this order; first match wins.
const (
	prefixAddTask   = "AGREGAR_TAREA"
	prefixListTasks = "LISTAR_TAREAS"
	prefixComplete  = "COMPLETAR_TAREA"
	prefixExpense   = "REGISTRAR_GASTO"
	prefixIncome    = "REGISTRAR_INGRESO"
	prefixSummary   = "RESUMEN_FINANCIERO"
	prefixBalance   = "SALDO_ACTUAL"
)

const (
	errExpenseFormat = "❌ Error: Formato incorrecto para registrar gasto. Necesito al menos el monto y la categoría."
	errIncomeFormat  = "❌ Error: Formato incorrecto para registrar ingreso. Necesito al menos el monto y la categoría."
)

// ParseReply classifies a raw model reply into a Command. It never fails:
// unparseable payloads become Malformed and unrecognized text becomes
// Conversational.
func ParseReply(text string) Command {
	switch {
	case strings.HasPrefix(text, prefixAddTask):
		return parseAddTask(payload(text, prefixAddTask))
	case strings.HasPrefix(text, prefixListTasks):
		filter := strings.ToLower(payload(text, prefixListTasks))
		if filter == "" {
			filter = db.FilterPending
		}
		return ListTasks{Filter: filter}
	case strings.HasPrefix(text, prefixComplete):
		return parseCompleteTask(payload(text, prefixComplete))
	case strings.HasPrefix(text, prefixExpense):
		return parseMovement(db.MovementExpense, payload(text, prefixExpense), errExpenseFormat)
	case strings.HasPrefix(text, prefixIncome):
		return parseMovement(db.MovementIncome, payload(text, prefixIncome), errIncomeFormat)
	case strings.HasPrefix(text, prefixSummary):
		period := strings.ToLower(payload(text, prefixSummary))
		if period == "" {
			period = "mes"
		}
		return FinancialSummary{Period: period}
	case strings.HasPrefix(text, prefixBalance):
		return CurrentBalance{}
	default:
		return Conversational{Text: text}
	}
}

func payload(text, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, prefix))
}

// fields splits a comma-delimited payload into trimmed values.
func fields(payload string) []string {
	parts := strings.Split(payload, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseAddTask(payload string) Command {
	parts := fields(payload)

	cmd := AddTask{Title: parts[0], Priority: db.PriorityMedium}
	if len(parts) > 1 {
		cmd.Description = parts[1]
	}
	if len(parts) > 2 {
		cmd.DueDate = parts[2]
	}
	if len(parts) > 3 {
		cmd.Priority = strings.ToLower(parts[3])
	}
	// Fields beyond the fourth are ignored.
	return cmd
}

func parseCompleteTask(payload string) Command {
	if payload == "" {
		return CompleteTask{}
	}
	if id, err := strconv.ParseInt(payload, 10, 64); err == nil {
		return CompleteTask{ID: id}
	}
	return CompleteTask{Title: payload}
}

func parseMovement(kind, payload, formatErr string) Command {
	parts := fields(payload)
	if len(parts) < 2 || parts[1] == "" {
		return Malformed{Reply: formatErr}
	}

	amount, err := decimal.NewFromString(parts[0])
	if err != nil || !amount.IsPositive() {
		return Malformed{Reply: formatErr}
	}

	cmd := RegisterMovement{Kind: kind, Amount: amount, Category: parts[1]}
	if len(parts) > 2 {
		cmd.Description = parts[2]
	}
	if len(parts) > 3 {
		cmd.Date = parts[3]
	}
	return cmd
}
