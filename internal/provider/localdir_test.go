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

func TestLocalDir_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/businesses", r.URL.Path)
		assert.Equal(t, "Bearer dir-key", r.Header.Get("Authorization"))
		assert.Equal(t, "bakeries", r.URL.Query().Get("keyword"))
		assert.Equal(t, "Portland, OR", r.URL.Query().Get("location"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"businesses": [
				{
					"name": "Rose City Bakery",
					"address": "200 NW Couch St, Portland, OR",
					"phone": "503-555-0123",
					"website": "https://rosecity.example.com",
					"email": "orders@rosecity.example.com",
					"rating": 4.8
				}
			]
		}`))
	}))
	defer srv.Close()

	dir := NewLocalDir("dir-key", testPacer(100), WithLocalDirBaseURL(srv.URL))
	leads, err := dir.Search(context.Background(), "bakeries", "Portland, OR", 10)
	require.NoError(t, err)
	require.Len(t, leads, 1)

	assert.Equal(t, "Rose City Bakery", leads[0].Name)
	assert.Equal(t, "orders@rosecity.example.com", leads[0].Email)
	assert.InDelta(t, 4.8, leads[0].Rating, 0.001)
}

func TestLocalDir_SearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	dir := NewLocalDir("bad-key", testPacer(100), WithLocalDirBaseURL(srv.URL))
	_, err := dir.Search(context.Background(), "bakeries", "Portland", 10)
	require.Error(t, err)

	var te *TransportError
	assert.True(t, errors.As(err, &te))
}
