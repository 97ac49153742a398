package nodes

import "github.com/elementary-rt/elementary/internal/engine"

// seqNode advances through a fixed sequence of values each time its
// single inbound trigger channel rises from zero, holding the current
// value between triggers (spec §8 "shared subtree" example pairs this
// with train).
type seqNode struct {
	values   []float64
	index    int
	lastTrig float32
}

func newSeq(hash uint32, sampleRate float64, blockSize int) engine.Node {
	return &seqNode{}
}

func (n *seqNode) SetProperty(key string, v any) engine.Status {
	if key != "seq" {
		return engine.StatusOK
	}
	raw, ok := v.([]any)
	if !ok {
		return engine.StatusInvalidType
	}
	values := make([]float64, 0, len(raw))
	for _, e := range raw {
		f, ok := e.(float64)
		if !ok {
			return engine.StatusInvalidValue
		}
		values = append(values, f)
	}
	n.values = values
	n.index = 0
	return engine.StatusOK
}

func (n *seqNode) Process(ctx *engine.ProcessContext) {
	trig := clampChannel(ctx, 0)
	out := ctx.OutputData[0]

	current := float32(0)
	if len(n.values) > 0 {
		current = float32(n.values[n.index])
	}

	for i := range out {
		if trig != nil {
			t := trig[i]
			if t > 0 && n.lastTrig <= 0 && len(n.values) > 0 {
				n.index = (n.index + 1) % len(n.values)
				current = float32(n.values[n.index])
			}
			n.lastTrig = t
		}
		out[i] = current
	}
}

func (n *seqNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *seqNode) NumOutputs() int                    { return 1 }
