package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePrimitiveRejectsTooManyChildren(t *testing.T) {
	kids := make([]Ref, MaxChildren+1)
	for i := range kids {
		kids[i] = Out(Const(float64(i)))
	}
	_, err := CreatePrimitive("mix", nil, kids...)
	assert.Errorf(t, err, "expected error for %d children", len(kids))
}

func TestCreatePrimitiveRejectsEmptyKind(t *testing.T) {
	_, err := CreatePrimitive("", nil)
	assert.Error(t, err, "expected error for empty kind")
}

func TestHashDeterminism(t *testing.T) {
	a, err := CreatePrimitive("sin", Props{"freq": 440.0})
	require.NoError(t, err)
	b, err := CreatePrimitive("sin", Props{"freq": 440.0})
	require.NoError(t, err)
	assert.Equal(t, a.Hash(), b.Hash(), "structurally equal values should hash identically")
}

func TestHashDistinguishesOutputChannel(t *testing.T) {
	child, _ := CreatePrimitive("split", Props{"key": "s"})
	left, err := CreatePrimitive("gain", nil, Ref{Value: child, Channel: 0})
	require.NoError(t, err)
	right, err := CreatePrimitive("gain", nil, Ref{Value: child, Channel: 1})
	require.NoError(t, err)
	assert.NotEqual(t, left.Hash(), right.Hash(), "expected distinct hashes for distinct child output channels")
}

func TestHashKeyOverridesPropChange(t *testing.T) {
	a, _ := CreatePrimitive("sin", Props{"key": "osc1", "freq": 440.0})
	b, _ := CreatePrimitive("sin", Props{"key": "osc1", "freq": 441.0})
	assert.Equal(t, a.Hash(), b.Hash(), "keyed values with only a non-key prop change should hash identically")
}

func TestConstSubstitution(t *testing.T) {
	c := Const(6.283185)
	assert.Equal(t, "const", c.Kind())
	assert.Equal(t, 6.283185, c.Props()["value"])
}
