package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw      string
		keyword  string
		location string
	}{
		{"restaurants in Dallas, TX", "restaurants", "Dallas, TX"},
		{"  plumbers in  Austin ", "plumbers", "Austin"},
		{"dentists miami fl", "dentists", "miami fl"},
		{"coffee shops seattle wa", "coffee shops", "seattle wa"},
		{"best rated coffee shops seattle wa", "best rated coffee shops", "seattle wa"},
		{"plumbers austin", "plumbers", "austin"},
		{"restaurants", "restaurants", ""},
		{"", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			q := Parse(tc.raw)
			assert.Equal(t, tc.keyword, q.Keyword)
			assert.Equal(t, tc.location, q.Location)
		})
	}
}

func TestQuery_Full(t *testing.T) {
	assert.Equal(t, "plumbers in Austin", Query{Keyword: "plumbers", Location: "Austin"}.Full())
	assert.Equal(t, "plumbers", Query{Keyword: "plumbers"}.Full())
}

func TestPlan_PrimaryOnly(t *testing.T) {
	queries, err := Plan(model.GenerationRequest{Query: "restaurants in Dallas"})
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, "restaurants", queries[0].Keyword)
	assert.Equal(t, "Dallas", queries[0].Location)
}

func TestPlan_SecondaryInheritsPrimaryLocation(t *testing.T) {
	queries, err := Plan(model.GenerationRequest{
		Query:   "restaurants in Dallas",
		Queries: []string{"coffee shops", "bakeries in Fort Worth"},
	})
	require.NoError(t, err)
	require.Len(t, queries, 2)

	assert.Equal(t, Query{Keyword: "coffee shops", Location: "Dallas"}, queries[0])
	assert.Equal(t, Query{Keyword: "bakeries", Location: "Fort Worth"}, queries[1])
}

func TestPlan_NoLocationAnywhere(t *testing.T) {
	_, err := Plan(model.GenerationRequest{
		Query:   "restaurants",
		Queries: []string{"coffee shops"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestPlan_EmptyRequest(t *testing.T) {
	_, err := Plan(model.GenerationRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}
