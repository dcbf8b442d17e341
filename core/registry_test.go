package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedTeam string

func (n namedTeam) Name() string { return string(n) }

type pointerTeam struct{ name string }

func (p *pointerTeam) Name() string { return p.name }

func TestIsNilTeam(t *testing.T) {
	var typedNil *pointerTeam
	assert.True(t, IsNilTeam(nil))
	assert.True(t, IsNilTeam(typedNil))
	assert.False(t, IsNilTeam(&pointerTeam{name: "cards"}))
	assert.False(t, IsNilTeam(namedTeam("pix")))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	var typedNil *pointerTeam
	r.Add(nil)
	r.Add(typedNil)
	r.Add(namedTeam("pix"))
	r.Add(&pointerTeam{name: "cards"})
	r.Add(namedTeam("pix"))

	teams := r.Teams()
	require.Len(t, teams, 2)
	assert.Equal(t, "cards", teams[0].Name())
	assert.Equal(t, "pix", teams[1].Name())

	got, ok := r.Team("cards")
	require.True(t, ok)
	assert.Equal(t, "cards", got.Name())

	assert.True(t, r.Remove("cards"))
	assert.False(t, r.Remove("cards"))
	assert.Len(t, r.Teams(), 1)
}
