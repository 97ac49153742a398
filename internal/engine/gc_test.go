package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSweepReclaimsUnreachableNodes(t *testing.T) {
	s := NewStore(newTestRegistry(), 44100, 128)
	s.CreateNode(1, "fake")
	s.CreateNode(2, "fake")
	s.AppendChild(1, 2, 0)

	// Node 1 is a root; node 2 is reachable through it.
	for i := 0; i < DefaultTerminalGeneration+1; i++ {
		s.Sweep([]uint32{1}, DefaultTerminalGeneration, nil)
	}
	assert.True(t, s.Has(1) && s.Has(2), "nodes reachable from roots must never be reclaimed")

	// Drop node 1 from the root set: both become unreachable.
	for i := 0; i < DefaultTerminalGeneration+1; i++ {
		s.Sweep(nil, DefaultTerminalGeneration, nil)
	}
	assert.False(t, s.Has(1) || s.Has(2), "expected both nodes reclaimed once unreachable past terminal generation")
}

func TestSweepReleasesResourcesOnReclaim(t *testing.T) {
	reg := NewRegistry()
	resources := NewResourceMap()
	reg.Register("buffer", NewBufferFactory(resources))
	s := NewStore(reg, 44100, 128)

	resources.Update("kick.wav", []float32{1, 2, 3})
	s.CreateNode(1, "buffer")
	s.SetProperty(1, "path", "kick.wav")
	assert.Equal(t, 2, resources.UseCount("kick.wav"), "expected use count 2 after acquire")

	for i := 0; i < DefaultTerminalGeneration+1; i++ {
		s.Sweep(nil, DefaultTerminalGeneration, resources)
	}
	assert.False(t, s.Has(1), "expected buffer node reclaimed")
	assert.Equal(t, 1, resources.UseCount("kick.wav"), "expected resource handle released back to 1")
}
