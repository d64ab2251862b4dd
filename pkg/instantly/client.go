// Package instantly is a client for the Instantly.ai v2 API, covering the
// three operations campaign sync needs: listing campaigns, creating lead
// records, and moving leads into a campaign.
package instantly

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.instantly.ai/api/v2"

// Client talks to the Instantly v2 API.
type Client interface {
	ListCampaigns(ctx context.Context) ([]Campaign, error)
	CreateLead(ctx context.Context, lead LeadRecord) (*CreatedLead, error)
	MoveLeads(ctx context.Context, req MoveRequest) (*MoveResponse, error)
}

// Campaign is one campaign as returned by GET /campaigns.
type Campaign struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status int    `json:"status"`
}

// LeadRecord is the payload for POST /leads.
type LeadRecord struct {
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	CompanyName string            `json:"company_name,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Website     string            `json:"website,omitempty"`
	Campaign    string            `json:"campaign,omitempty"`
	CustomVars  map[string]string `json:"custom_variables,omitempty"`
}

// CreatedLead is the response from POST /leads.
type CreatedLead struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Campaign string `json:"campaign"`
}

// MoveRequest is the payload for POST /leads/move.
type MoveRequest struct {
	LeadIDs      []string `json:"ids"`
	ToCampaignID string   `json:"to_campaign_id"`
}

// MoveResponse is the response from POST /leads/move. The move runs as a
// background job upstream; a non-empty ID is the only reliable evidence the
// assignment was accepted.
type MoveResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Accepted reports whether the move response actually confirms the
// assignment. An HTTP 200 with an unrecognized body does not count.
func (m *MoveResponse) Accepted() bool {
	return m != nil && (m.ID != "" || m.Status != "")
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates an Instantly API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return eris.Wrapf(err, "instantly: marshal %s %s", method, path)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return eris.Wrapf(err, "instantly: create request %s %s", method, path)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "instantly: %s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "instantly: read response %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return eris.Errorf("instantly: %s %s status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrapf(err, "instantly: unmarshal response %s %s", method, path)
		}
	}
	return nil
}

// ListCampaigns returns all campaigns. The v2 API has returned both a bare
// array and an items-wrapped object over time, so both shapes are accepted.
func (c *httpClient) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/campaigns", nil, &raw); err != nil {
		return nil, err
	}

	var campaigns []Campaign
	if err := json.Unmarshal(raw, &campaigns); err == nil {
		return campaigns, nil
	}

	var wrapped struct {
		Items []Campaign `json:"items"`
		Data  []Campaign `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, eris.Wrap(err, "instantly: unmarshal campaigns")
	}
	if wrapped.Items != nil {
		return wrapped.Items, nil
	}
	return wrapped.Data, nil
}

// CreateLead creates one lead record.
func (c *httpClient) CreateLead(ctx context.Context, lead LeadRecord) (*CreatedLead, error) {
	if lead.Email == "" {
		return nil, eris.New("instantly: lead email is required")
	}
	var created CreatedLead
	if err := c.do(ctx, http.MethodPost, "/leads", lead, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, eris.New("instantly: create lead returned no id")
	}
	return &created, nil
}

// MoveLeads submits a batch move of lead records into a campaign.
func (c *httpClient) MoveLeads(ctx context.Context, req MoveRequest) (*MoveResponse, error) {
	if len(req.LeadIDs) == 0 {
		return nil, eris.New("instantly: move requires at least one lead id")
	}
	if req.ToCampaignID == "" {
		return nil, eris.New("instantly: move requires a campaign id")
	}
	var moved MoveResponse
	if err := c.do(ctx, http.MethodPost, "/leads/move", req, &moved); err != nil {
		return nil, err
	}
	return &moved, nil
}
