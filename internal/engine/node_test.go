package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("const")
	assert.False(t, ok, "expected empty registry to have no kinds")

	r.Register("const", func(hash uint32, sampleRate float64, blockSize int) Node { return &fakeNode{} })
	_, ok = r.Lookup("const")
	assert.True(t, ok, "expected const to be registered")
	assert.Equal(t, []string{"const"}, r.Kinds())
}

func TestRegistryRegisterReplacesExisting(t *testing.T) {
	r := NewRegistry()
	var calls int
	r.Register("x", func(hash uint32, sampleRate float64, blockSize int) Node { calls = 1; return &fakeNode{} })
	r.Register("x", func(hash uint32, sampleRate float64, blockSize int) Node { calls = 2; return &fakeNode{} })
	f, _ := r.Lookup("x")
	f(1, 44100, 128)
	assert.Equal(t, 2, calls, "expected second registration to win")
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusOK:           "ok",
		StatusInvalidType:  "invalid-type",
		StatusInvalidValue: "invalid-value",
	}
	for status, want := range cases {
		assert.Equal(t, want, status.String())
	}
}
