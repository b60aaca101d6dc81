// Package server exposes the relay over HTTP: the chat UI page, the
// message log, the WhatsApp ingestion endpoints, and the websocket live
// channel.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/user/whatsapp-assistant/internal/db"
	"github.com/user/whatsapp-assistant/internal/relay"
)

//go:embed index.html
var indexHTML embed.FS

const platformWhatsApp = "WhatsApp"

type Server struct {
	relay    *relay.Relay
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

func New(r *relay.Relay, logger *zap.SugaredLogger) *Server {
	return &Server{
		relay:  r,
		logger: logger,
		upgrader: websocket.Upgrader{
			// The UI is served same-origin; the live channel carries no
			// credentials, so cross-origin viewers are acceptable.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/messages", s.handleMessages)
	mux.HandleFunc("/whatsapp/webhook", s.handleWebhook)
	mux.HandleFunc("/whatsapp_message", s.handleWhatsAppMessage)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	page, err := indexHTML.ReadFile("index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// handleMessages returns the full chat log, newest first.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.relay.Messages(r.Context())
	if err != nil {
		s.logger.Errorw("failed to load messages", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "No se pudo conectar a la base de datos",
		})
		return
	}
	if messages == nil {
		messages = []db.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// handleWebhook ingests Twilio-shaped form posts. From/To carry a
// "whatsapp:" prefix that is stripped before use.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid form payload"})
		return
	}

	from := strings.TrimPrefix(r.PostFormValue("From"), "whatsapp:")
	body := r.PostFormValue("Body")
	timestamp := time.Now().Format(time.RFC3339)

	s.relay.ProcessIncoming(r.Context(), platformWhatsApp, from, from, body, timestamp)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// inboundMessage uses pointer fields so absent JSON keys are detectable.
type inboundMessage struct {
	Platform  *string `json:"platform"`
	Sender    *string `json:"sender"`
	ChatID    *string `json:"chat_id"`
	Message   *string `json:"message"`
	Timestamp *string `json:"timestamp"`
}

func (m *inboundMessage) complete() bool {
	return m.Platform != nil && m.Sender != nil && m.ChatID != nil &&
		m.Message != nil && m.Timestamp != nil
}

// handleWhatsAppMessage ingests JSON posts from the custom gateway.
// Messages from other platforms are logged but not run through the
// assistant.
func (s *Server) handleWhatsAppMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload inboundMessage
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || !payload.complete() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Datos incompletos"})
		return
	}

	if *payload.Platform == platformWhatsApp {
		s.relay.ProcessIncoming(r.Context(), *payload.Platform, *payload.Sender,
			*payload.ChatID, *payload.Message, *payload.Timestamp)
	} else {
		s.relay.Record(r.Context(), db.ChatMessage{
			Platform:  *payload.Platform,
			Sender:    *payload.Sender,
			ChatID:    *payload.ChatID,
			Message:   *payload.Message,
			Timestamp: *payload.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Websocket wire format.
type wsEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wsSendMessage struct {
	Platform string `json:"platform"`
	ChatID   string `json:"chat_id"`
	Message  string `json:"message"`
}

// handleWebSocket attaches a live viewer: broadcasts flow out as
// new_message events, and send_message events from the viewer are relayed
// to the named platform.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	id, ch := s.relay.Hub().Subscribe()
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ch {
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := conn.WriteJSON(wsEvent{Event: "new_message", Data: data}); err != nil {
				return
			}
		}
	}()

	for {
		var event wsEvent
		if err := conn.ReadJSON(&event); err != nil {
			break
		}
		if event.Event != "send_message" {
			continue
		}

		var send wsSendMessage
		if err := json.Unmarshal(event.Data, &send); err != nil ||
			send.Platform == "" || send.ChatID == "" || send.Message == "" {
			// All three fields are required; incomplete events are dropped.
			s.logger.Errorw("incomplete send_message event", "subscriber", id)
			continue
		}
		s.relay.SendFromViewer(r.Context(), send.Platform, send.ChatID, send.Message)
	}

	// Closing the subscription ends the writer goroutine.
	s.relay.Hub().Unsubscribe(id)
	<-done
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
