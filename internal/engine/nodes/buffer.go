package nodes

import "github.com/elementary-rt/elementary/internal/engine"

// bufferNode plays back a shared resource (spec C11) selected by the
// `path` property, advancing a read position once per sample and holding
// at the last sample when it runs off the end. Demonstrates the
// Acquire-at-SetProperty / Release-at-GC lifecycle the spec's resource
// policy describes (§5).
type bufferNode struct {
	resources *engine.ResourceMap
	handle    *engine.ResourceHandle
	pos       int
}

// NewBufferFactory binds a buffer node kind to resources, since
// acquiring a path requires access to the shared resource map (unlike
// every other built-in kind, which is self-contained). Call
// reg.Register("buffer", NewBufferFactory(resources)) during setup.
func NewBufferFactory(resources *engine.ResourceMap) engine.Factory {
	return func(hash uint32, sampleRate float64, blockSize int) engine.Node {
		return &bufferNode{resources: resources}
	}
}

func (n *bufferNode) SetProperty(key string, v any) engine.Status {
	if key != "path" {
		return engine.StatusOK
	}
	path, ok := v.(string)
	if !ok {
		return engine.StatusInvalidType
	}
	handle, found := n.resources.Acquire(path)
	if !found {
		return engine.StatusInvalidValue
	}
	if n.handle != nil {
		n.handle.Release()
	}
	n.handle = handle
	n.pos = 0
	return engine.StatusOK
}

func (n *bufferNode) Process(ctx *engine.ProcessContext) {
	out := ctx.OutputData[0]
	if n.handle == nil {
		zeroFill(ctx)
		return
	}
	buf := n.handle.Buffer()
	for i := range out {
		if n.pos < len(buf) {
			out[i] = buf[n.pos]
			n.pos++
		} else if len(buf) > 0 {
			out[i] = buf[len(buf)-1]
		} else {
			out[i] = 0
		}
	}
}

func (n *bufferNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *bufferNode) NumOutputs() int                    { return 1 }

// ReleaseResources satisfies engine's resourceHolder interface, called by
// the GC sweep when this node is reclaimed (spec §4.8 point 3).
func (n *bufferNode) ReleaseResources(res *engine.ResourceMap) {
	if n.handle != nil {
		n.handle.Release()
		n.handle = nil
	}
}
