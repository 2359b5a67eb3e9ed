// Package messaging is the HTTP client for the stage-based messaging service.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"familyconnect/internal/subscription/ports"
	"familyconnect/pkg/domainerrors"
	"familyconnect/pkg/platform/circuit"
)

// Client talks to the stage-based messaging service over HTTP with token auth.
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
		breaker: circuit.New("stage-messaging"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if !c.breaker.Allow() {
		return domainerrors.New(domainerrors.CodeCollaborator, "messaging service circuit open")
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "messaging service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}

	if resp.StatusCode >= 300 {
		return domainerrors.New(domainerrors.CodeCollaborator,
			fmt.Sprintf("messaging service returned %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// MessagesetByShortName looks a messageset up by its exact short name. The
// catalog must hold exactly one match; zero or several is a provisioning
// error, not a silent pick.
func (c *Client) MessagesetByShortName(ctx context.Context, shortName string) (ports.Messageset, error) {
	query := url.Values{}
	query.Set("short_name", shortName)
	var body struct {
		Results []ports.Messageset `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/messageset/", query, nil, &body); err != nil {
		return ports.Messageset{}, err
	}
	switch len(body.Results) {
	case 1:
		return body.Results[0], nil
	case 0:
		return ports.Messageset{}, domainerrors.New(domainerrors.CodeCollaborator,
			"no messageset found for short name "+shortName)
	default:
		return ports.Messageset{}, domainerrors.New(domainerrors.CodeCollaborator,
			"multiple messagesets found for short name "+shortName)
	}
}

// Schedule fetches one delivery schedule by id.
func (c *Client) Schedule(ctx context.Context, scheduleID int) (ports.Schedule, error) {
	var schedule ports.Schedule
	err := c.do(ctx, http.MethodGet, "/schedule/"+strconv.Itoa(scheduleID)+"/", nil, nil, &schedule)
	return schedule, err
}

// ActiveSubscriptions lists the identity's currently active subscriptions.
func (c *Client) ActiveSubscriptions(ctx context.Context, identityID string) ([]ports.Subscription, error) {
	query := url.Values{}
	query.Set("identity", identityID)
	query.Set("active", "True")
	var body struct {
		Results []ports.Subscription `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/subscriptions/", query, nil, &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

// PatchSubscription applies a partial update to one subscription.
func (c *Client) PatchSubscription(ctx context.Context, subscriptionID string, fields map[string]any) error {
	return c.do(ctx, http.MethodPatch, "/subscriptions/"+subscriptionID+"/", nil, fields, nil)
}
