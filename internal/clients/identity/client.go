// Package identity is the HTTP client for the external identity store.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"familyconnect/internal/subscription/ports"
	"familyconnect/pkg/domainerrors"
	"familyconnect/pkg/platform/circuit"
)

// Client talks to the identity store over HTTP with token auth.
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
		breaker: circuit.New("identity-store"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	if !c.breaker.Allow() {
		return domainerrors.New(domainerrors.CodeCollaborator, "identity store circuit open")
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return domainerrors.Wrap(domainerrors.CodeCollaborator, "identity store unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}

	if resp.StatusCode == http.StatusNotFound {
		return domainerrors.New(domainerrors.CodeCollaborator, "identity not found")
	}
	if resp.StatusCode >= 300 {
		return domainerrors.New(domainerrors.CodeCollaborator,
			fmt.Sprintf("identity store returned %d", resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Get fetches one identity by id.
func (c *Client) Get(ctx context.Context, identityID string) (ports.Identity, error) {
	var identity ports.Identity
	err := c.do(ctx, http.MethodGet, "/identities/"+identityID+"/", nil, &identity)
	return identity, err
}

// Search filters identities on detail fields (e.g. details__parish).
func (c *Client) Search(ctx context.Context, params map[string]string) ([]ports.Identity, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	var body struct {
		Results []ports.Identity `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/identities/search/", query, &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

// Address resolves the default address of the given type for an identity.
func (c *Client) Address(ctx context.Context, identityID, addrType string) (string, error) {
	query := url.Values{}
	query.Set("default", "True")
	var body struct {
		Results []struct {
			Address string `json:"address"`
		} `json:"results"`
	}
	err := c.do(ctx, http.MethodGet, "/identities/"+identityID+"/addresses/"+addrType, query, &body)
	if err != nil {
		return "", err
	}
	if len(body.Results) == 0 {
		return "", domainerrors.New(domainerrors.CodeCollaborator, "no default address for identity")
	}
	return body.Results[0].Address, nil
}
