// Package mailtester is a client for the MailTester.ninja email verification
// API. Verification is a two-endpoint flow: fetch a short-lived token with
// the API key, then verify addresses against the happy endpoint until the
// token expires.
package mailtester

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultTokenBaseURL  = "https://token.mailtester.ninja"
	defaultVerifyBaseURL = "https://happy.mailtester.ninja"

	tokenLifetime = 50 * time.Minute
)

// Client verifies email addresses.
type Client interface {
	Verify(ctx context.Context, email string) (*Result, error)
}

// Result is the verification outcome for one address.
type Result struct {
	Email   string  `json:"email"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Score   float64 `json:"score"`
	User    string  `json:"user"`
	Domain  string  `json:"domain"`
}

// Status buckets returned in Result.Code.
const (
	CodeValid      = "ok"
	CodeInvalid    = "ko"
	CodeCatchAll   = "mb" // mailbox unverifiable, domain accepts everything
	CodeRoleBased  = "ro"
	CodeDisposable = "di"
)

// Option configures the client.
type Option func(*httpClient)

// WithTokenBaseURL overrides the token endpoint base URL.
func WithTokenBaseURL(u string) Option {
	return func(c *httpClient) { c.tokenBaseURL = u }
}

// WithVerifyBaseURL overrides the verification endpoint base URL.
func WithVerifyBaseURL(u string) Option {
	return func(c *httpClient) { c.verifyBaseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey        string
	tokenBaseURL  string
	verifyBaseURL string
	http          *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a MailTester.ninja client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		tokenBaseURL:  defaultTokenBaseURL,
		verifyBaseURL: defaultVerifyBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
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

func (c *httpClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenBaseURL+"/token?"+q.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "mailtester: create token request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "mailtester: fetch token")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "mailtester: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("mailtester: token endpoint status %d: %s", resp.StatusCode, string(body))
	}

	var tr struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", eris.Wrap(err, "mailtester: unmarshal token response")
	}
	if tr.Token == "" {
		return "", eris.New("mailtester: empty token")
	}

	c.token = tr.Token
	c.tokenExpiry = time.Now().Add(tokenLifetime)
	return c.token, nil
}

// Verify checks a single address.
func (c *httpClient) Verify(ctx context.Context, email string) (*Result, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.verifyBaseURL+"/ninja?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "mailtester: create verify request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "mailtester: verify request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "mailtester: read verify response")
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Token expired early; drop it so the next call refreshes.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return nil, eris.Errorf("mailtester: token rejected (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("mailtester: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "mailtester: unmarshal verify response")
	}
	if result.Email == "" {
		result.Email = email
	}
	return &result, nil
}
