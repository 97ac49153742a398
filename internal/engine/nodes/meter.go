package nodes

import "github.com/elementary-rt/elementary/internal/engine"

// meterNode passes its single inbound channel through unchanged while
// tracking the block's min/max, emitting a `meter` event each block (spec
// §4.9 known topics: "meter ({min,max,source})"). The event payload is a
// single map allocated once at construction and mutated in place every
// block; Process pushes it onto a NodeEventQueue that ProcessEvents
// drains. Storing the float32 min and max into the map boxes each value
// into an interface, which allocates every block.
type meterNode struct {
	source   string
	min, max float32
	payload  map[string]any
	events   engine.NodeEventQueue
}

func newMeter(hash uint32, sampleRate float64, blockSize int) engine.Node {
	return &meterNode{
		source:  "meter",
		payload: map[string]any{"min": float32(0), "max": float32(0), "source": "meter"},
	}
}

func (n *meterNode) SetProperty(key string, v any) engine.Status {
	if key != "name" {
		return engine.StatusOK
	}
	s, ok := v.(string)
	if !ok {
		return engine.StatusInvalidType
	}
	n.source = s
	return engine.StatusOK
}

func (n *meterNode) Process(ctx *engine.ProcessContext) {
	in := clampChannel(ctx, 0)
	if in == nil {
		zeroFill(ctx)
		n.min, n.max = 0, 0
	} else {
		out := ctx.OutputData[0]
		copy(out, in)

		min, max := in[0], in[0]
		for _, s := range in[1:] {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		n.min, n.max = min, max
	}

	n.payload["min"] = n.min
	n.payload["max"] = n.max
	n.payload["source"] = n.source
	n.events.Push("meter", n.payload)
}

func (n *meterNode) ProcessEvents(emit engine.EmitFunc) {
	n.events.Drain(emit)
}

func (n *meterNode) NumOutputs() int { return 1 }
