// Package relay receives inbound messages from any channel, runs them
// through the assistant, and persists and broadcasts both sides of the
// exchange.
package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/whatsapp-assistant/internal/db"
)

// AssistantSender is the display name recorded for assistant replies.
const AssistantSender = "Asistente"

// MessageStore is the slice of the store the relay needs.
type MessageStore interface {
	SaveChatMessage(ctx context.Context, msg db.ChatMessage) (db.ChatMessage, error)
	ListChatMessages(ctx context.Context) ([]db.ChatMessage, error)
}

// Processor produces the assistant's reply for an inbound message.
type Processor interface {
	ProcessMessage(ctx context.Context, message, chatID string) string
}

// Sender delivers an outbound message to a channel's gateway.
type Sender interface {
	Send(ctx context.Context, chatID, message string) error
}

// Relay wires the store, the assistant, the live-viewer hub, and the
// per-platform outbound senders together.
type Relay struct {
	store     MessageStore
	assistant Processor
	hub       *Hub
	senders   map[string]Sender
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func New(store MessageStore, assistant Processor, hub *Hub, logger *zap.SugaredLogger) *Relay {
	return &Relay{
		store:     store,
		assistant: assistant,
		hub:       hub,
		senders:   make(map[string]Sender),
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterSender attaches the outbound gateway for a platform.
func (r *Relay) RegisterSender(platform string, sender Sender) {
	r.senders[platform] = sender
}

// Hub exposes the live-viewer registry for channel adapters.
func (r *Relay) Hub() *Hub {
	return r.hub
}

// Messages returns the full chat log, newest first.
func (r *Relay) Messages(ctx context.Context) ([]db.ChatMessage, error) {
	return r.store.ListChatMessages(ctx)
}

// Record persists a chat message and broadcasts it to live viewers.
// A storage failure is logged and the unsaved message is still broadcast,
// so a database outage degrades the log without silencing the UI.
func (r *Relay) Record(ctx context.Context, msg db.ChatMessage) {
	saved, err := r.store.SaveChatMessage(ctx, msg)
	if err != nil {
		r.logger.Warnw("failed to persist chat message", "platform", msg.Platform, "error", err)
		saved = msg
	}
	r.hub.Broadcast(saved)
}

// ProcessIncoming handles an inbound user message: it records and
// broadcasts the message, asks the assistant for a reply, records the
// reply, and relays it back out the originating channel. The reply is
// returned so HTTP handlers can include it in their response.
func (r *Relay) ProcessIncoming(ctx context.Context, platform, sender, chatID, message, timestamp string) string {
	r.Record(ctx, db.ChatMessage{
		Platform:  platform,
		Sender:    sender,
		ChatID:    chatID,
		Message:   message,
		Timestamp: timestamp,
	})

	reply := r.assistant.ProcessMessage(ctx, message, chatID)

	r.Record(ctx, db.ChatMessage{
		Platform:        platform,
		Sender:          AssistantSender,
		ChatID:          chatID,
		Message:         reply,
		Timestamp:       r.now().Format(time.RFC3339),
		IsFromAssistant: true,
	})

	if out, ok := r.senders[platform]; ok {
		if err := out.Send(ctx, chatID, reply); err != nil {
			// Local persistence already happened; delivery failure is
			// logged and the reply is still returned to the caller.
			r.logger.Warnw("failed to relay reply to channel",
				"platform", platform, "chat_id", chatID, "error", err)
		}
	}
	return reply
}

// SendFromViewer handles a send_message event from the web UI: the message
// goes out the named platform's gateway and the assistant's reply to it is
// recorded and broadcast.
func (r *Relay) SendFromViewer(ctx context.Context, platform, chatID, message string) {
	if out, ok := r.senders[platform]; ok {
		if err := out.Send(ctx, chatID, message); err != nil {
			r.logger.Warnw("failed to send viewer message",
				"platform", platform, "chat_id", chatID, "error", err)
		}
	} else {
		r.logger.Warnw("no sender registered for platform", "platform", platform)
	}

	reply := r.assistant.ProcessMessage(ctx, message, chatID)

	r.Record(ctx, db.ChatMessage{
		Platform:        platform,
		Sender:          AssistantSender,
		ChatID:          chatID,
		Message:         reply,
		Timestamp:       r.now().Format(time.RFC3339),
		IsFromAssistant: true,
	})
}
