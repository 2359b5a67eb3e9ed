// Package sender is the HTTP client for the outbound message dispatcher.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"familyconnect/pkg/domainerrors"
	"familyconnect/pkg/platform/circuit"
)

// Client posts outbound notifications to the message sender service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	breaker *circuit.Breaker
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: circuit.New("message-sender"),
	}
}

// Send dispatches one outbound message. The sender service owns retries and
// delivery reports; a 2xx here only means the message was accepted.
func (c *Client) Send(ctx context.Context, toAddr, content string, metadata map[string]string) error {
	if !c.breaker.Allow() {
		return domainerrors.New(domainerrors.CodeCollaborator, "message sender circuit open")
	}
	raw, err := json.Marshal(map[string]any{
		"to_addr":  toAddr,
		"content":  content,
		"metadata": metadata,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/outbound/", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "message sender unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}

	if resp.StatusCode >= 300 {
		return domainerrors.New(domainerrors.CodeCollaborator,
			fmt.Sprintf("message sender returned %d", resp.StatusCode))
	}
	return nil
}
