package nodes

import "github.com/elementary-rt/elementary/internal/engine"

// mixNode scales its single inbound channel by a gain property, default 1.
type mixNode struct {
	gain float64
}

func newMix(hash uint32, sampleRate float64, blockSize int) engine.Node {
	return &mixNode{gain: 1}
}

func (n *mixNode) SetProperty(key string, v any) engine.Status {
	if key != "gain" {
		return engine.StatusOK
	}
	f, ok := v.(float64)
	if !ok {
		return engine.StatusInvalidType
	}
	n.gain = f
	return engine.StatusOK
}

func (n *mixNode) Process(ctx *engine.ProcessContext) {
	in := clampChannel(ctx, 0)
	if in == nil {
		zeroFill(ctx)
		return
	}
	gain := float32(n.gain)
	out := ctx.OutputData[0]
	for i := range out {
		out[i] = in[i] * gain
	}
}

func (n *mixNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *mixNode) NumOutputs() int                    { return 1 }
