package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/eel-studio/storefront/internal/httputil"
)

// DefaultResendURL is the Resend API base.
const DefaultResendURL = "https://api.resend.com"

// Message is one outbound email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendSender sends through the Resend HTTP API.
type ResendSender struct {
	client *httputil.Client
}

// NewResendSender creates a sender. baseURL may be empty for the public API.
func NewResendSender(apiKey, baseURL string, timeout time.Duration) *ResendSender {
	if baseURL == "" {
		baseURL = DefaultResendURL
	}
	return &ResendSender{client: httputil.NewClient(httputil.ClientConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Timeout: timeout,
	})}
}

// SendError is a rejected send.
type SendError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("resend %d %s: %s", e.StatusCode, e.Name, e.Message)
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	resp, err := s.client.Post(ctx, "/emails", msg)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _, err := httputil.ReadAllWithLimit(resp.Body, 64<<10)
	if err != nil {
		return "", fmt.Errorf("read resend response: %w", err)
	}

	res := gjson.ParseBytes(body)
	if resp.StatusCode >= http.StatusBadRequest {
		se := &SendError{
			StatusCode: resp.StatusCode,
			Name:       res.Get("name").String(),
			Message:    res.Get("message").String(),
		}
		if se.Message == "" {
			se.Message = http.StatusText(resp.StatusCode)
		}
		return "", se
	}
	id := res.Get("id").String()
	if id == "" {
		return "", fmt.Errorf("resend response missing id")
	}
	return id, nil
}
