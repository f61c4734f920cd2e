package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SMSGatewayConfig points at the firm's SMS provider.
type SMSGatewayConfig struct {
	BaseURL   string
	AccountID string
	AuthToken string
	Sender    string
	Timeout   time.Duration
}

// SMSGatewayClient sends outbound texts through a bearer-auth JSON gateway.
type SMSGatewayClient struct {
	baseURL    string
	accountID  string
	authToken  string
	sender     string
	httpClient *http.Client
}

func NewSMSGatewayClient(cfg SMSGatewayConfig) (*SMSGatewayClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("sms: gateway URL is required")
	}
	if strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, errors.New("sms: auth token is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SMSGatewayClient{
		baseURL:    baseURL,
		accountID:  cfg.AccountID,
		authToken:  cfg.AuthToken,
		sender:     cfg.Sender,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Send delivers one SMS to a client phone number.
func (s *SMSGatewayClient) Send(ctx context.Context, to, body string) error {
	payload := map[string]string{
		"account": s.accountID,
		"from":    s.sender,
		"to":      to,
		"body":    body,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sms: encode payload: %w", err)
	}

	url := s.baseURL + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sms: gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
