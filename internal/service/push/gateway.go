package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"notify-hub/internal/domain"
)

// Gateway abstracts the external push-messaging provider. Multicast
// outcomes are positional: result i belongs to token i.
type Gateway interface {
	Send(ctx context.Context, token string, payload domain.PushPayload) (string, error)
	SendMulticast(ctx context.Context, tokens []string, payload domain.PushPayload) ([]SendOutcome, error)
	SendToTopic(ctx context.Context, topic string, payload domain.PushPayload) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error
}

// SendOutcome is the per-token result of a multicast call.
type SendOutcome struct {
	MessageID string
	Err       error
}

// HTTPGateway talks JSON to an FCM-style HTTP endpoint.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type gatewayMessage struct {
	Token    string            `json:"token,omitempty"`
	Tokens   []string          `json:"tokens,omitempty"`
	Topic    string            `json:"topic,omitempty"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

type gatewayResponse struct {
	MessageID string              `json:"message_id"`
	Results   []gatewayItemResult `json:"results"`
	Error     *gatewayError       `json:"error"`
}

type gatewayItemResult struct {
	MessageID string        `json:"message_id"`
	Error     *gatewayError `json:"error"`
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *gatewayError) toDomain() *domain.ProviderError {
	kind := domain.ProviderFatal
	switch e.Code {
	case "UNREGISTERED", "INVALID_TOKEN", "NOT_FOUND":
		kind = domain.ProviderInvalidToken
	case "UNAVAILABLE", "INTERNAL", "QUOTA_EXCEEDED":
		kind = domain.ProviderTransient
	}
	return &domain.ProviderError{Kind: kind, Code: e.Code, Message: e.Message}
}

func (g *HTTPGateway) post(ctx context.Context, path string, msg gatewayMessage) (*gatewayResponse, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.ProviderTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	var decoded gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &domain.ProviderError{
			Kind:    domain.ProviderFatal,
			Message: fmt.Sprintf("malformed provider response (status %d)", resp.StatusCode),
		}
	}

	if decoded.Error != nil {
		return nil, decoded.Error.toDomain()
	}
	if resp.StatusCode >= 500 {
		return nil, &domain.ProviderError{Kind: domain.ProviderTransient, Message: resp.Status}
	}
	if resp.StatusCode >= 400 {
		return nil, &domain.ProviderError{Kind: domain.ProviderFatal, Message: resp.Status}
	}

	return &decoded, nil
}

func (g *HTTPGateway) Send(ctx context.Context, token string, payload domain.PushPayload) (string, error) {
	resp, err := g.post(ctx, "/v1/messages", gatewayMessage{
		Token:    token,
		Title:    payload.Title,
		Body:     payload.Body,
		Data:     payload.Data,
		Priority: string(payload.Priority),
	})
	if err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

func (g *HTTPGateway) SendMulticast(ctx context.Context, tokens []string, payload domain.PushPayload) ([]SendOutcome, error) {
	resp, err := g.post(ctx, "/v1/messages/multicast", gatewayMessage{
		Tokens:   tokens,
		Title:    payload.Title,
		Body:     payload.Body,
		Data:     payload.Data,
		Priority: string(payload.Priority),
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Results) != len(tokens) {
		return nil, &domain.ProviderError{
			Kind:    domain.ProviderFatal,
			Message: fmt.Sprintf("provider returned %d results for %d tokens", len(resp.Results), len(tokens)),
		}
	}

	outcomes := make([]SendOutcome, len(tokens))
	for i, r := range resp.Results {
		if r.Error != nil {
			outcomes[i] = SendOutcome{Err: r.Error.toDomain()}
			continue
		}
		outcomes[i] = SendOutcome{MessageID: r.MessageID}
	}
	return outcomes, nil
}

func (g *HTTPGateway) SendToTopic(ctx context.Context, topic string, payload domain.PushPayload) (string, error) {
	resp, err := g.post(ctx, "/v1/messages/topic", gatewayMessage{
		Topic:    topic,
		Title:    payload.Title,
		Body:     payload.Body,
		Data:     payload.Data,
		Priority: string(payload.Priority),
	})
	if err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

func (g *HTTPGateway) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	_, err := g.post(ctx, "/v1/topics/subscribe", gatewayMessage{Tokens: tokens, Topic: topic})
	return err
}

func (g *HTTPGateway) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	_, err := g.post(ctx, "/v1/topics/unsubscribe", gatewayMessage{Tokens: tokens, Topic: topic})
	return err
}
