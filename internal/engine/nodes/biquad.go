package nodes

import (
	"math"

	"github.com/elementary-rt/elementary/internal/engine"
)

// biquadNode is a direct-form-II transposed lowpass biquad. Channel 0 is
// the signal, channel 1 (optional) is the cutoff in Hz; coefficients
// recompute whenever the cutoff changes, keeping SetProperty and Process
// both on the single audio thread with no shared-state synchronization.
type biquadNode struct {
	sampleRate         float64
	cutoff, q          float64
	b0, b1, b2, a1, a2 float64
	z1, z2             float64
}

func newBiquad(hash uint32, sampleRate float64, blockSize int) engine.Node {
	n := &biquadNode{sampleRate: sampleRate, q: 0.707}
	n.recompute(1000)
	return n
}

func (n *biquadNode) SetProperty(key string, v any) engine.Status {
	f, ok := v.(float64)
	if !ok {
		return engine.StatusInvalidType
	}
	switch key {
	case "cutoff":
		n.recompute(f)
	case "q":
		n.q = f
		n.recompute(n.cutoff)
	}
	return engine.StatusOK
}

// recompute derives RBJ lowpass coefficients for the given cutoff.
func (n *biquadNode) recompute(cutoff float64) {
	cutoff = math.Min(math.Max(cutoff, 1), n.sampleRate/2-1)
	n.cutoff = cutoff
	omega := 2 * math.Pi * cutoff / n.sampleRate
	alpha := math.Sin(omega) / (2 * n.q)
	cosw := math.Cos(omega)

	b0 := (1 - cosw) / 2
	b1 := 1 - cosw
	b2 := (1 - cosw) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw
	a2 := 1 - alpha

	n.b0, n.b1, n.b2 = b0/a0, b1/a0, b2/a0
	n.a1, n.a2 = a1/a0, a2/a0
}

func (n *biquadNode) Process(ctx *engine.ProcessContext) {
	in := clampChannel(ctx, 0)
	if in == nil {
		zeroFill(ctx)
		return
	}
	if cutoffIn := clampChannel(ctx, 1); len(cutoffIn) > 0 {
		n.recompute(float64(cutoffIn[len(cutoffIn)-1]))
	}

	b0, b1, b2, a1, a2 := n.b0, n.b1, n.b2, n.a1, n.a2
	z1, z2 := n.z1, n.z2

	out := ctx.OutputData[0]
	for i, x := range in {
		xf := float64(x)
		y := b0*xf + z1
		z1 = b1*xf - a1*y + z2
		z2 = b2*xf - a2*y
		out[i] = float32(y)
	}

	n.z1, n.z2 = z1, z2
}

func (n *biquadNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *biquadNode) NumOutputs() int                    { return 1 }
