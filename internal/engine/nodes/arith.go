package nodes

import "github.com/elementary-rt/elementary/internal/engine"

// mulNode and addNode each combine every inbound channel sample-wise.
// With a single child both pass that child's signal through; with no
// children both output silence (spec §7 treats zero inbound channels as
// the zero-fill case).

type mulNode struct{}

func newMul(hash uint32, sampleRate float64, blockSize int) engine.Node { return &mulNode{} }

func (n *mulNode) SetProperty(key string, v any) engine.Status { return engine.StatusOK }

func (n *mulNode) Process(ctx *engine.ProcessContext) {
	out := ctx.OutputData[0]
	if len(ctx.InputData) == 0 {
		zeroFill(ctx)
		return
	}
	first := clampChannel(ctx, 0)
	if first == nil {
		zeroFill(ctx)
		return
	}
	copy(out, first)
	for c := 1; c < len(ctx.InputData); c++ {
		in := clampChannel(ctx, c)
		if in == nil {
			continue
		}
		for i := range out {
			out[i] *= in[i]
		}
	}
}

func (n *mulNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *mulNode) NumOutputs() int                    { return 1 }

type addNode struct{}

func newAdd(hash uint32, sampleRate float64, blockSize int) engine.Node { return &addNode{} }

func (n *addNode) SetProperty(key string, v any) engine.Status { return engine.StatusOK }

func (n *addNode) Process(ctx *engine.ProcessContext) {
	zeroFill(ctx)
	out := ctx.OutputData[0]
	for c := range ctx.InputData {
		in := clampChannel(ctx, c)
		if in == nil {
			continue
		}
		for i := range out {
			out[i] += in[i]
		}
	}
}

func (n *addNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *addNode) NumOutputs() int                    { return 1 }
