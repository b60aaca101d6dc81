package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/whatsapp-assistant/internal/db"
	"github.com/user/whatsapp-assistant/internal/relay"
)

// stubProcessor echoes a canned reply without calling an oracle.
type stubProcessor struct {
	reply string
}

func (p stubProcessor) ProcessMessage(ctx context.Context, message, chatID string) string {
	return p.reply
}

func newTestServer(t *testing.T, reply string) (*Server, *db.Manager) {
	t.Helper()
	manager := db.NewTestManager(t)
	logger := zap.NewNop().Sugar()
	r := relay.New(manager, stubProcessor{reply: reply}, relay.NewHub(logger), logger)
	return New(r, logger), manager
}

func TestHandleIndex(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Asistente")
}

func TestHandleMessages_Empty(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHandleMessages_StoreFailure(t *testing.T) {
	srv, manager := newTestServer(t, "")
	require.NoError(t, manager.Close())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "No se pudo conectar a la base de datos")
}

func TestHandleWebhook(t *testing.T) {
	srv, manager := newTestServer(t, "¡Hola!")

	form := url.Values{}
	form.Set("From", "whatsapp:+5215512345678")
	form.Set("Body", "hola")

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"success"`)

	messages, err := manager.ListChatMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	// The whatsapp: prefix is stripped from the sender.
	assert.Equal(t, "+5215512345678", messages[1].Sender)
	assert.Equal(t, "hola", messages[1].Message)
	assert.Equal(t, "¡Hola!", messages[0].Message)
	assert.True(t, messages[0].IsFromAssistant)
}

func TestHandleWebhook_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whatsapp/webhook", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleWhatsAppMessage(t *testing.T) {
	srv, manager := newTestServer(t, "¡Hola!")

	body := `{"platform":"WhatsApp","sender":"Usuario","chat_id":"chat-1","message":"hola","timestamp":"2025-03-15T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/whatsapp_message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	messages, err := manager.ListChatMessages(context.Background())
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

// Non-WhatsApp platforms are logged without running the assistant.
func TestHandleWhatsAppMessage_OtherPlatform(t *testing.T) {
	srv, manager := newTestServer(t, "¡Hola!")

	body := `{"platform":"Web","sender":"Usuario","chat_id":"chat-1","message":"hola","timestamp":"2025-03-15T12:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/whatsapp_message", strings.NewReader(body))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	messages, err := manager.ListChatMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hola", messages[0].Message)
}

func TestHandleWhatsAppMessage_IncompletePayload(t *testing.T) {
	srv, _ := newTestServer(t, "")

	cases := []string{
		`{"platform":"WhatsApp","sender":"Usuario"}`,
		`{}`,
		`not json`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/whatsapp_message", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Contains(t, rec.Body.String(), "Datos incompletos")
	}
}

func TestWebSocket_LiveChannel(t *testing.T) {
	srv, manager := newTestServer(t, "¡Hola!")

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Ingesting a message pushes both sides of the exchange to the viewer.
	body := `{"platform":"WhatsApp","sender":"Usuario","chat_id":"chat-1","message":"hola","timestamp":"2025-03-15T12:00:00Z"}`
	resp, err := http.Post(ts.URL+"/whatsapp_message", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var event struct {
		Event string         `json:"event"`
		Data  db.ChatMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "new_message", event.Event)
	assert.Equal(t, "hola", event.Data.Message)

	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "new_message", event.Event)
	assert.Equal(t, "¡Hola!", event.Data.Message)
	assert.True(t, event.Data.IsFromAssistant)

	// A send_message event runs the assistant and broadcasts its reply.
	send := fmt.Sprintf(`{"event":"send_message","data":{"platform":%q,"chat_id":"chat-1","message":"otra"}}`, "Web")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(send)))

	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "¡Hola!", event.Data.Message)

	messages, err := manager.ListChatMessages(context.Background())
	require.NoError(t, err)
	assert.Len(t, messages, 3)
}
