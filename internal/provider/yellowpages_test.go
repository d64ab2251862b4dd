package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYellowPages_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/consumer/search", r.URL.Path)
		assert.Equal(t, "dentists", r.URL.Query().Get("searchTerms"))
		assert.Equal(t, "Miami, FL", r.URL.Query().Get("geolocation"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"searchResult": {
				"metaProperties": {"totalAvailable": 2},
				"searchListings": {
					"searchListing": [
						{
							"businessName": "Miami Dental Group",
							"street": "100 Biscayne Blvd",
							"city": "Miami",
							"state": "FL",
							"zip": "33132",
							"phone": "305-555-0100",
							"websiteURL": "https://miamidental.example.com",
							"email": "hello@miamidental.example.com",
							"averageRating": 4.5
						},
						{"businessName": "", "street": "ignored"}
					]
				}
			}
		}`))
	}))
	defer srv.Close()

	yp := NewYellowPages("test-key", testPacer(100), WithYPBaseURL(srv.URL))
	leads, err := yp.Search(context.Background(), "dentists", "Miami, FL", 10)
	require.NoError(t, err)
	require.Len(t, leads, 1)

	assert.Equal(t, "Miami Dental Group", leads[0].Name)
	assert.Equal(t, "100 Biscayne Blvd, Miami, FL 33132", leads[0].Address)
	assert.Equal(t, "305-555-0100", leads[0].Phone)
	assert.Equal(t, "hello@miamidental.example.com", leads[0].Email)
	assert.InDelta(t, 4.5, leads[0].Rating, 0.001)
}

func TestYellowPages_SearchNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	yp := NewYellowPages("test-key", testPacer(100), WithYPBaseURL(srv.URL))
	_, err := yp.Search(context.Background(), "dentists", "Nowhere", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoResults))
}

func TestYellowPages_SearchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	yp := NewYellowPages("test-key", testPacer(100), WithYPBaseURL(srv.URL))
	_, err := yp.Search(context.Background(), "dentists", "Miami", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
}
