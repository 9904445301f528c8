package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockRuntimeEveryFamily(t *testing.T) {
	reg := testRegistry(t)
	rt := &MockRuntime{Registry: reg}

	for _, info := range reg.Models() {
		t.Run(info.ID, func(t *testing.T) {
			m, err := New(rt, reg, info.ID, 100, nil)
			require.NoError(t, err)

			got, err := m.Invoke(context.Background(), "  hello world  ", 0.5, 0.9)
			require.NoError(t, err)
			assert.Equal(t, "Hello world", got)
		})
	}
	assert.Equal(t, int64(len(reg.Models())), rt.Calls())
}

func TestMockRuntimeContextCancel(t *testing.T) {
	reg := testRegistry(t)
	rt := &MockRuntime{Registry: reg, Delay: 5 * time.Second}
	m, err := New(rt, reg, "amazon.titan-text-express-v1", 100, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Invoke(ctx, "hello", 0.5, 0.9)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolish(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"capitalizes first letter", "hello world", "Hello world"},
		{"trims whitespace", "  hello world  ", "Hello world"},
		{"already capitalized", "Hello world", "Hello world"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, polish(tt.input))
		})
	}
}
