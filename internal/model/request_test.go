package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     GenerationRequest
		wantErr bool
	}{
		{name: "valid minimal", req: GenerationRequest{Query: "dentists in Miami"}},
		{name: "missing query", req: GenerationRequest{}, wantErr: true},
		{name: "queries without primary", req: GenerationRequest{Queries: []string{"dentists in Miami"}}},
		{name: "negative limit", req: GenerationRequest{Query: "x in y", Limit: -1}, wantErr: true},
		{name: "sync without campaign", req: GenerationRequest{Query: "x in y", CampaignSync: true}, wantErr: true},
		{name: "sync with campaign", req: GenerationRequest{Query: "x in y", CampaignSync: true, CampaignID: "c1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRequest))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerationRequest_EffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, GenerationRequest{}.EffectiveLimit())
	assert.Equal(t, 5, GenerationRequest{Limit: 5}.EffectiveLimit())
}
