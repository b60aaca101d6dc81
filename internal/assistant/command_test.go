package assistant

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/whatsapp-assistant/internal/db"
)

func TestParseReply_Passthrough(t *testing.T) {
	replies := []string{
		"¡Hola! ¿En qué puedo ayudarte hoy?",
		"claro, cuéntame más",
		"",
	}
	for _, reply := range replies {
		cmd := ParseReply(reply)
		conv, ok := cmd.(Conversational)
		require.True(t, ok, "expected passthrough for %q", reply)
		assert.Equal(t, reply, conv.Text)
	}
}

func TestParseReply_AddTaskFullPayload(t *testing.T) {
	cmd := ParseReply("AGREGAR_TAREA Comprar leche, entera, 2025-03-10, Alta")
	require.IsType(t, AddTask{}, cmd)

	task := cmd.(AddTask)
	assert.Equal(t, "Comprar leche", task.Title)
	assert.Equal(t, "entera", task.Description)
	assert.Equal(t, "2025-03-10", task.DueDate)
	assert.Equal(t, "alta", task.Priority)
}

func TestParseReply_AddTaskDefaults(t *testing.T) {
	cmd := ParseReply("AGREGAR_TAREA Comprar leche")
	require.IsType(t, AddTask{}, cmd)

	task := cmd.(AddTask)
	assert.Equal(t, "Comprar leche", task.Title)
	assert.Empty(t, task.Description)
	assert.Empty(t, task.DueDate)
	assert.Equal(t, db.PriorityMedium, task.Priority)
}

func TestParseReply_AddTaskIgnoresExcessFields(t *testing.T) {
	cmd := ParseReply("AGREGAR_TAREA a, b, c, baja, extra, more")
	require.IsType(t, AddTask{}, cmd)
	assert.Equal(t, db.PriorityLow, cmd.(AddTask).Priority)
}

func TestParseReply_ListTasks(t *testing.T) {
	cases := map[string]string{
		"LISTAR_TAREAS":             db.FilterPending,
		"LISTAR_TAREAS todas":       db.FilterAll,
		"LISTAR_TAREAS Completadas": db.FilterCompleted,
	}
	for reply, filter := range cases {
		cmd := ParseReply(reply)
		require.IsType(t, ListTasks{}, cmd, "reply %q", reply)
		assert.Equal(t, filter, cmd.(ListTasks).Filter)
	}
}

func TestParseReply_CompleteTask(t *testing.T) {
	cmd := ParseReply("COMPLETAR_TAREA 42")
	require.IsType(t, CompleteTask{}, cmd)
	assert.Equal(t, int64(42), cmd.(CompleteTask).ID)

	cmd = ParseReply("COMPLETAR_TAREA Comprar leche")
	require.IsType(t, CompleteTask{}, cmd)
	assert.Zero(t, cmd.(CompleteTask).ID)
	assert.Equal(t, "Comprar leche", cmd.(CompleteTask).Title)

	cmd = ParseReply("COMPLETAR_TAREA")
	require.IsType(t, CompleteTask{}, cmd)
	assert.Zero(t, cmd.(CompleteTask).ID)
	assert.Empty(t, cmd.(CompleteTask).Title)
}

func TestParseReply_RegisterExpense(t *testing.T) {
	cmd := ParseReply("REGISTRAR_GASTO 50.25, comida, almuerzo, 2025-03-02")
	require.IsType(t, RegisterMovement{}, cmd)

	mv := cmd.(RegisterMovement)
	assert.Equal(t, db.MovementExpense, mv.Kind)
	assert.True(t, mv.Amount.Equal(decimal.RequireFromString("50.25")))
	assert.Equal(t, "comida", mv.Category)
	assert.Equal(t, "almuerzo", mv.Description)
	assert.Equal(t, "2025-03-02", mv.Date)
}

func TestParseReply_RegisterIncomeDefaults(t *testing.T) {
	cmd := ParseReply("REGISTRAR_INGRESO 200, salario")
	require.IsType(t, RegisterMovement{}, cmd)

	mv := cmd.(RegisterMovement)
	assert.Equal(t, db.MovementIncome, mv.Kind)
	assert.Empty(t, mv.Description)
	assert.Empty(t, mv.Date)
}

func TestParseReply_MovementFormatErrors(t *testing.T) {
	cases := []struct {
		reply   string
		message string
	}{
		{"REGISTRAR_GASTO mucho, comida", errExpenseFormat},
		{"REGISTRAR_GASTO 50", errExpenseFormat},
		{"REGISTRAR_GASTO", errExpenseFormat},
		{"REGISTRAR_GASTO -10, comida", errExpenseFormat},
		{"REGISTRAR_INGRESO abc, salario", errIncomeFormat},
	}
	for _, tc := range cases {
		cmd := ParseReply(tc.reply)
		require.IsType(t, Malformed{}, cmd, "reply %q", tc.reply)
		assert.Equal(t, tc.message, cmd.(Malformed).Reply)
	}
}

func TestParseReply_SummaryAndBalance(t *testing.T) {
	cmd := ParseReply("RESUMEN_FINANCIERO")
	require.IsType(t, FinancialSummary{}, cmd)
	assert.Equal(t, "mes", cmd.(FinancialSummary).Period)

	cmd = ParseReply("RESUMEN_FINANCIERO Semana")
	require.IsType(t, FinancialSummary{}, cmd)
	assert.Equal(t, "semana", cmd.(FinancialSummary).Period)

	cmd = ParseReply("SALDO_ACTUAL")
	assert.IsType(t, CurrentBalance{}, cmd)
}

// Every prefix must dispatch to exactly its own command type.
func TestParseReply_PrefixDispatchIsExclusive(t *testing.T) {
	cases := map[string]Command{
		"AGREGAR_TAREA x":          AddTask{},
		"LISTAR_TAREAS":            ListTasks{},
		"COMPLETAR_TAREA 1":        CompleteTask{},
		"REGISTRAR_GASTO 1, a":     RegisterMovement{},
		"REGISTRAR_INGRESO 1, a":   RegisterMovement{},
		"RESUMEN_FINANCIERO":       FinancialSummary{},
		"SALDO_ACTUAL":             CurrentBalance{},
		"NO_ES_COMANDO hola mundo": Conversational{},
	}
	for reply, want := range cases {
		assert.IsType(t, want, ParseReply(reply), "reply %q", reply)
	}
}
