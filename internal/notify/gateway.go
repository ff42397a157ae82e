package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// GatewayClient talks to the WhatsApp HTTP gateway. Every send is
// bounded by the client timeout and converted into a Result; the
// gateway being down must never take an order down with it.
type GatewayClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewGatewayClient builds a gateway dispatcher. A zero timeout defaults
// to 10 seconds.
func NewGatewayClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *GatewayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewayClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *GatewayClient) SendBill(ctx context.Context, m Message) Result {
	return c.send(ctx, m.Phone, billText(m))
}

func (c *GatewayClient) SendAdvance(ctx context.Context, m Message) Result {
	return c.send(ctx, m.Phone, advanceText(m))
}

func (c *GatewayClient) SendCompletion(ctx context.Context, m Message) Result {
	return c.send(ctx, m.Phone, completionText(m))
}

func (c *GatewayClient) SendReminder(ctx context.Context, m Message) Result {
	return c.send(ctx, m.Phone, reminderText(m))
}

type gatewayRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type gatewayResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func (c *GatewayClient) send(ctx context.Context, phone, text string) Result {
	body, err := json.Marshal(gatewayRequest{Phone: phone, Message: text})
	if err != nil {
		return Result{Err: fmt.Sprintf("encode request: %s", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return Result{Err: fmt.Sprintf("build request: %s", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("whatsapp gateway unreachable", slog.Any("error", err))
		return Result{Err: fmt.Sprintf("gateway request: %s", err)}
	}
	defer resp.Body.Close()

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Err: fmt.Sprintf("decode response: %s", err)}
	}
	if resp.StatusCode >= 300 || !out.Success {
		errText := out.Error
		if errText == "" {
			errText = fmt.Sprintf("gateway returned status %d", resp.StatusCode)
		}
		return Result{Err: errText}
	}
	return Result{Success: true, MessageID: out.MessageID}
}
