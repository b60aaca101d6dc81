// Package whatsapp is the outbound client for the WhatsApp gateway service:
// a plain HTTP bridge that accepts {chat_id, message} on POST /send.
package whatsapp

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/user/whatsapp-assistant/internal/httpclient"
)

// chatDomain is appended to every chat id the gateway receives.
const chatDomain = "@s.whatsapp.net"

const defaultGatewayURL = "http://localhost:3000"

// Client sends messages through the WhatsApp gateway.
type Client struct {
	httpClient *httpclient.Client
}

// NewClient reads the gateway base URL from WHATSAPP_SERVICE_URL.
// The gateway call is a short synchronous request; one retry at most.
func NewClient(logger *zap.SugaredLogger) *Client {
	baseURL := os.Getenv("WHATSAPP_SERVICE_URL")
	if baseURL == "" {
		baseURL = defaultGatewayURL
	}

	config := httpclient.DefaultConfig()
	config.BaseURL = baseURL
	config.Timeout = 5 * time.Second
	config.RetryCount = 1

	client := httpclient.NewClient(config)
	if logger != nil {
		client.WithMiddleware(httpclient.LoggingMiddleware(logger))
	}
	return &Client{httpClient: client}
}

// NewClientWithHTTP wires the gateway client over a prebuilt HTTP client.
func NewClientWithHTTP(httpClient *httpclient.Client) *Client {
	return &Client{httpClient: httpClient}
}

type sendRequest struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

// Send delivers a message to a chat. The chat id is suffixed with the
// gateway's domain tag.
func (c *Client) Send(ctx context.Context, chatID, message string) error {
	request := sendRequest{
		ChatID:  chatID + chatDomain,
		Message: message,
	}
	if err := c.httpClient.Post(ctx, "/send", request, nil); err != nil {
		return fmt.Errorf("failed to send WhatsApp message: %w", err)
	}
	return nil
}
