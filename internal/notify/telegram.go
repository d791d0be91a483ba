package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier posts alerts to a chat through the Bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewTelegramNotifier creates a notifier for one bot token and chat.
func NewTelegramNotifier(token, chatID string, timeout time.Duration) *TelegramNotifier {
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: telegramAPI,
		client:  &http.Client{Timeout: timeout},
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "telegram",
			MaxRequests: 1,
			Timeout:     5 * time.Minute,
		}),
	}
}

// WithBaseURL points the notifier at another Bot API endpoint.
func (n *TelegramNotifier) WithBaseURL(u string) *TelegramNotifier {
	n.baseURL = u
	return n
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  alert.Text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("%w: marshal telegram payload: %v", ErrDispatch, err)
	}

	_, err = n.circuit.Execute(func() (interface{}, error) {
		return nil, n.post(ctx, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: telegram circuit open: %v", ErrDispatch, err)
		}
		return err
	}
	return nil
}

func (n *TelegramNotifier) post(ctx context.Context, body []byte) error {
	u := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create telegram request: %v", ErrDispatch, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send telegram message: %v", ErrDispatch, err)
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !result.OK {
		return fmt.Errorf("%w: telegram returned status %d: %s", ErrDispatch, resp.StatusCode, result.Description)
	}
	return nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}
