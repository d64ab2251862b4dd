package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
)

const defaultLocalDirBaseURL = "https://api.localdirectory.dev"

// LocalDir searches a local business directory API. It is the only source
// that returns contact emails directly, so it front-loads enrichment when
// configured.
type LocalDir struct {
	baseURL string
	apiKey  string
	pacer   *Pacer
	http    *http.Client
	retry   resilience.Policy
}

// LocalDirOption configures the adapter.
type LocalDirOption func(*LocalDir)

// WithLocalDirBaseURL overrides the API base URL.
func WithLocalDirBaseURL(u string) LocalDirOption {
	return func(l *LocalDir) { l.baseURL = u }
}

// WithLocalDirHTTPClient overrides the default http.Client.
func WithLocalDirHTTPClient(hc *http.Client) LocalDirOption {
	return func(l *LocalDir) { l.http = hc }
}

// NewLocalDir creates the local directory adapter.
func NewLocalDir(apiKey string, pacer *Pacer, opts ...LocalDirOption) *LocalDir {
	l := &LocalDir{
		baseURL: defaultLocalDirBaseURL,
		apiKey:  apiKey,
		pacer:   pacer,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements Provider.
func (l *LocalDir) Name() string { return "localdir" }

type localDirResponse struct {
	Businesses []localDirBusiness `json:"businesses"`
}

type localDirBusiness struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Phone   string  `json:"phone"`
	Website string  `json:"website"`
	Email   string  `json:"email"`
	Rating  float64 `json:"rating"`
}

// Search implements Provider.
func (l *LocalDir) Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error) {
	q := url.Values{}
	q.Set("keyword", keyword)
	q.Set("location", location)
	q.Set("limit", strconv.Itoa(limit))

	result, err := resilience.DoVal(ctx, l.retry, "localdir.search", func(ctx context.Context) (*localDirResponse, error) {
		if err := l.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		return l.fetch(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(result.Businesses))
	for _, b := range result.Businesses {
		if b.Name == "" {
			continue
		}
		leads = append(leads, model.Lead{
			Name:    b.Name,
			Address: b.Address,
			Phone:   b.Phone,
			Website: b.Website,
			Email:   b.Email,
			Rating:  b.Rating,
		})
		if len(leads) >= limit {
			break
		}
	}
	return leads, nil
}

func (l *LocalDir) fetch(ctx context.Context, q url.Values) (*localDirResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/v1/businesses?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "localdir: create request")
	}
	req.Header.Set("User-Agent", l.pacer.UserAgent())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: l.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: l.Name(), Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, eris.Wrap(ErrRateLimited, "localdir")
	case resp.StatusCode != http.StatusOK:
		err := fmt.Errorf("localdir: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, &TransportError{Provider: l.Name(), Err: err}
	}

	var result localDirResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "localdir: unmarshal response")
	}
	return &result, nil
}
