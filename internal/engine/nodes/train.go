package nodes

import "github.com/elementary-rt/elementary/internal/engine"

// trainNode emits a one-sample impulse (1.0, then 0.0 until the next
// tick) at a fixed rate in Hz (spec §8 "shared subtree" example).
type trainNode struct {
	sampleRate float64
	rate       float64
	phase      float64
}

func newTrain(hash uint32, sampleRate float64, blockSize int) engine.Node {
	return &trainNode{sampleRate: sampleRate, rate: 1}
}

func (n *trainNode) SetProperty(key string, v any) engine.Status {
	if key != "rate" {
		return engine.StatusOK
	}
	f, ok := v.(float64)
	if !ok {
		return engine.StatusInvalidType
	}
	n.rate = f
	return engine.StatusOK
}

func (n *trainNode) Process(ctx *engine.ProcessContext) {
	out := ctx.OutputData[0]
	step := n.rate / n.sampleRate
	for i := range out {
		if n.phase < step {
			out[i] = 1
		} else {
			out[i] = 0
		}
		n.phase += step
		if n.phase >= 1 {
			n.phase -= 1
		}
	}
}

func (n *trainNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *trainNode) NumOutputs() int                    { return 1 }
