package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(ctx context.Context, keyword, location string, limit int) ([]model.Lead, error) {
	return nil, nil
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "alpha"})
	r.Register(&stubProvider{name: "beta"})
	r.Register(&stubProvider{name: "gamma"})

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, r.Names())
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "alpha"})

	p, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", p.Name())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{name: "alpha"})
	r.Register(&stubProvider{name: "beta"})
	r.Register(&stubProvider{name: "gamma"})

	t.Run("empty list selects all in order", func(t *testing.T) {
		selected := r.Select(nil)
		require.Len(t, selected, 3)
		assert.Equal(t, "alpha", selected[0].Name())
		assert.Equal(t, "gamma", selected[2].Name())
	})

	t.Run("allow-list preserves registration order", func(t *testing.T) {
		selected := r.Select([]string{"gamma", "alpha"})
		require.Len(t, selected, 2)
		assert.Equal(t, "alpha", selected[0].Name())
		assert.Equal(t, "gamma", selected[1].Name())
	})

	t.Run("unknown names are skipped", func(t *testing.T) {
		selected := r.Select([]string{"alpha", "nonexistent"})
		require.Len(t, selected, 1)
		assert.Equal(t, "alpha", selected[0].Name())
	})
}

func TestRegistry_RegisterReplacesDuplicate(t *testing.T) {
	r := NewRegistry()
	first := &stubProvider{name: "alpha"}
	second := &stubProvider{name: "alpha"}
	r.Register(first)
	r.Register(second)

	assert.Equal(t, []string{"alpha"}, r.Names())
	p, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Same(t, second, p)
}
