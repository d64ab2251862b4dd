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

const defaultYPBaseURL = "https://api.yellowpages.com"

// YellowPages searches the Yellow Pages consumer API. Requires an API key;
// returns richer records (phone, website, rating) than the free sources.
type YellowPages struct {
	baseURL string
	apiKey  string
	pacer   *Pacer
	http    *http.Client
	retry   resilience.Policy
}

// YPOption configures the adapter.
type YPOption func(*YellowPages)

// WithYPBaseURL overrides the API base URL.
func WithYPBaseURL(u string) YPOption {
	return func(y *YellowPages) { y.baseURL = u }
}

// WithYPHTTPClient overrides the default http.Client.
func WithYPHTTPClient(hc *http.Client) YPOption {
	return func(y *YellowPages) { y.http = hc }
}

// NewYellowPages creates the Yellow Pages adapter.
func NewYellowPages(apiKey string, pacer *Pacer, opts ...YPOption) *YellowPages {
	y := &YellowPages{
		baseURL: defaultYPBaseURL,
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
		opt(y)
	}
	return y
}

// Name implements Provider.
func (y *YellowPages) Name() string { return "yellowpages" }

type ypResponse struct {
	SearchResult struct {
		MetaProperties struct {
			TotalAvailable int `json:"totalAvailable"`
		} `json:"metaProperties"`
		SearchListings struct {
			SearchListing []ypListing `json:"searchListing"`
		} `json:"searchListings"`
	} `json:"searchResult"`
}

type ypListing struct {
	BusinessName  string  `json:"businessName"`
	Street        string  `json:"street"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Zip           string  `json:"zip"`
	Phone         string  `json:"phone"`
	WebsiteURL    string  `json:"websiteURL"`
	Email         string  `json:"email"`
	AverageRating float64 `json:"averageRating"`
}

// Search implements Provider.
func (y *YellowPages) Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error) {
	q := url.Values{}
	q.Set("searchTerms", keyword)
	q.Set("geolocation", location)
	q.Set("format", "json")
	q.Set("listingCount", strconv.Itoa(limit))
	q.Set("key", y.apiKey)

	result, err := resilience.DoVal(ctx, y.retry, "yellowpages.search", func(ctx context.Context) (*ypResponse, error) {
		if err := y.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		return y.fetch(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	listings := result.SearchResult.SearchListings.SearchListing
	leads := make([]model.Lead, 0, len(listings))
	for _, l := range listings {
		if l.BusinessName == "" {
			continue
		}
		addr := l.Street
		if l.City != "" {
			addr += ", " + l.City
		}
		if l.State != "" {
			addr += ", " + l.State
			if l.Zip != "" {
				addr += " " + l.Zip
			}
		}
		leads = append(leads, model.Lead{
			Name:    l.BusinessName,
			Address: addr,
			Phone:   l.Phone,
			Website: l.WebsiteURL,
			Email:   l.Email,
			Rating:  l.AverageRating,
		})
		if len(leads) >= limit {
			break
		}
	}
	return leads, nil
}

func (y *YellowPages) fetch(ctx context.Context, q url.Values) (*ypResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"/v2/consumer/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "yellowpages: create request")
	}
	req.Header.Set("User-Agent", y.pacer.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := y.http.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: y.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: y.Name(), Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, eris.Wrap(ErrRateLimited, "yellowpages")
	case resp.StatusCode == http.StatusNotFound:
		// This API 404s a search with no listings.
		return nil, eris.Wrap(ErrNoResults, "yellowpages")
	case resp.StatusCode != http.StatusOK:
		err := fmt.Errorf("yellowpages: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, &TransportError{Provider: y.Name(), Err: err}
	}

	var result ypResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "yellowpages: unmarshal response")
	}
	return &result, nil
}
