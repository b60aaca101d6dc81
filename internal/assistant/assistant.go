package assistant

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// fallbackReply is returned whenever processing fails for any reason.
const fallbackReply = "Lo siento, ha ocurrido un error al procesar tu mensaje. Por favor, inténtalo de nuevo."

// Oracle is the LLM completion service: text in, text out. It is expected
// to open structured replies with one of the seven command prefixes.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Assistant turns an inbound user message into a final reply: it asks the
// oracle, decodes the reply into a Command, executes the matching domain
// operation, and appends the turn to the conversation log.
type Assistant struct {
	oracle  Oracle
	service *Service
	store   Store
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func New(oracle Oracle, store Store, logger *zap.SugaredLogger) *Assistant {
	return &Assistant{
		oracle:  oracle,
		service: NewService(store, logger),
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// ProcessMessage handles one inbound message for a chat and returns the
// user-facing reply. It never returns an error: oracle failures degrade to
// the apologetic fallback.
func (a *Assistant) ProcessMessage(ctx context.Context, message, chatID string) string {
	raw, err := a.oracle.Generate(ctx, message)
	if err != nil {
		a.logger.Warnw("oracle call failed", "chat_id", chatID, "error", err)
		a.record(ctx, chatID, message, fallbackReply)
		return fallbackReply
	}

	reply, _ := a.Interpret(ctx, raw)
	a.record(ctx, chatID, message, reply)
	return reply
}

// Interpret decodes a raw model reply, executes the matching operation, and
// returns the final text together with the decoded Command.
func (a *Assistant) Interpret(ctx context.Context, raw string) (string, Command) {
	cmd := ParseReply(raw)

	switch c := cmd.(type) {
	case Conversational:
		return c.Text, cmd
	case AddTask:
		return a.service.AddTask(ctx, c.Title, c.Description, c.DueDate, c.Priority), cmd
	case ListTasks:
		return a.service.ListTasks(ctx, c.Filter), cmd
	case CompleteTask:
		if c.ID != 0 {
			return a.service.CompleteTaskByID(ctx, c.ID), cmd
		}
		return a.service.CompleteTaskByTitle(ctx, c.Title), cmd
	case RegisterMovement:
		return a.service.RegisterMovement(ctx, c.Kind, c.Amount, c.Category, c.Description, c.Date), cmd
	case FinancialSummary:
		return a.service.FinancialSummary(ctx, c.Period), cmd
	case CurrentBalance:
		return a.service.CurrentBalance(ctx), cmd
	case Malformed:
		return c.Reply, cmd
	default:
		// Unreachable while ParseReply stays exhaustive.
		a.logger.Errorw("unhandled command type", "command", cmd)
		return fallbackReply, cmd
	}
}

func (a *Assistant) record(ctx context.Context, chatID, message, reply string) {
	ts := a.now().Format(time.RFC3339)
	if err := a.store.SaveConversation(ctx, chatID, message, reply, ts); err != nil {
		a.logger.Warnw("failed to record conversation", "chat_id", chatID, "error", err)
	}
}
