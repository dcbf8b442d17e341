package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/core"
)

var _ Model = (*MockModel)(nil)

func TestGenerateText_MockModel(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.AddResponse("hello", `{"ok":true}`)

	for _, stream := range []bool{false, true} {
		text, err := GenerateText(context.Background(), m, Request{
			Contents: []core.Content{core.NewTextContent("user", "hello")},
			Stream:   stream,
		})
		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, text)
	}
	assert.Equal(t, 2, m.Calls())
}

func TestGenerateText_DefaultResponse(t *testing.T) {
	m := NewMockModel("mock", "mock")
	text, err := GenerateText(context.Background(), m, Request{
		Contents: []core.Content{core.NewTextContent("user", "unknown")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: unknown", text)
}

func TestGenerateText_Errors(t *testing.T) {
	m := NewMockModel("mock", "mock")
	_, err := GenerateText(context.Background(), m, Request{})
	assert.Error(t, err)

	boom := errors.New("boom")
	m.FailWith(boom)
	_, err = GenerateText(context.Background(), m, Request{
		Contents: []core.Content{core.NewTextContent("user", "x")},
	})
	assert.ErrorIs(t, err, boom)
}
