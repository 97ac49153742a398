package nodes

import (
	"math"

	"github.com/elementary-rt/elementary/internal/engine"
)

// sinNode maps its single inbound channel (a phase or angle, radians)
// through math.Sin.
type sinNode struct{}

func newSin(hash uint32, sampleRate float64, blockSize int) engine.Node { return &sinNode{} }

func (n *sinNode) SetProperty(key string, v any) engine.Status { return engine.StatusOK }

func (n *sinNode) Process(ctx *engine.ProcessContext) {
	in := clampChannel(ctx, 0)
	if in == nil {
		zeroFill(ctx)
		return
	}
	out := ctx.OutputData[0]
	for i := range out {
		out[i] = float32(math.Sin(float64(in[i])))
	}
}

func (n *sinNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *sinNode) NumOutputs() int                    { return 1 }
