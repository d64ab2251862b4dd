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

const defaultOSMBaseURL = "https://nominatim.openstreetmap.org"

// OSM searches OpenStreetMap's Nominatim endpoint. It is the free baseline
// source: always available, no API key, modest result quality.
type OSM struct {
	baseURL string
	pacer   *Pacer
	http    *http.Client
	retry   resilience.Policy
}

// OSMOption configures the adapter.
type OSMOption func(*OSM)

// WithOSMBaseURL overrides the Nominatim base URL.
func WithOSMBaseURL(u string) OSMOption {
	return func(o *OSM) { o.baseURL = u }
}

// WithOSMHTTPClient overrides the default http.Client.
func WithOSMHTTPClient(hc *http.Client) OSMOption {
	return func(o *OSM) { o.http = hc }
}

// NewOSM creates the OpenStreetMap adapter.
func NewOSM(pacer *Pacer, opts ...OSMOption) *OSM {
	o := &OSM{
		baseURL: defaultOSMBaseURL,
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
		opt(o)
	}
	return o
}

// Name implements Provider.
func (o *OSM) Name() string { return "openstreetmap" }

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search implements Provider.
func (o *OSM) Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error) {
	q := url.Values{}
	q.Set("q", keyword+" in "+location)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "0")
	q.Set("limit", strconv.Itoa(limit))

	// Pacing sits inside the retry loop so every outbound attempt, retries
	// included, pays the delay and consumes hourly budget.
	places, err := resilience.DoVal(ctx, o.retry, "osm.search", func(ctx context.Context) ([]nominatimPlace, error) {
		if err := o.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		return o.fetch(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(places))
	for _, p := range places {
		name := p.Name
		if name == "" {
			name = p.DisplayName
		}
		if name == "" {
			continue
		}
		leads = append(leads, model.Lead{
			Name:    name,
			Address: p.DisplayName,
		})
		if len(leads) >= limit {
			break
		}
	}
	return leads, nil
}

func (o *OSM) fetch(ctx context.Context, q url.Values) ([]nominatimPlace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "osm: create request")
	}
	req.Header.Set("User-Agent", o.pacer.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: o.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: o.Name(), Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, eris.Wrap(ErrRateLimited, "osm")
	case resp.StatusCode != http.StatusOK:
		err := fmt.Errorf("osm: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, &TransportError{Provider: o.Name(), Err: err}
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "osm: unmarshal response")
	}
	return places, nil
}
