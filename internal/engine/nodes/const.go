package nodes

import "github.com/elementary-rt/elementary/internal/engine"

// constNode emits a fixed scalar value on every sample of its single
// output. Producers synthesize this kind automatically for bare numeric
// children (spec §4.3 step 1 "Resolve"). SetProperty and Process both run
// on the audio thread, strictly sequenced within a block by the executor's
// drain-then-schedule order, so a plain field needs no synchronization.
type constNode struct {
	value float64
}

func newConst(hash uint32, sampleRate float64, blockSize int) engine.Node {
	return &constNode{}
}

func (n *constNode) SetProperty(key string, v any) engine.Status {
	if key != "value" {
		return engine.StatusOK
	}
	f, ok := v.(float64)
	if !ok {
		return engine.StatusInvalidType
	}
	n.value = f
	return engine.StatusOK
}

func (n *constNode) Process(ctx *engine.ProcessContext) {
	v := float32(n.value)
	out := ctx.OutputData[0]
	for i := range out {
		out[i] = v
	}
}

func (n *constNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *constNode) NumOutputs() int                    { return 1 }
