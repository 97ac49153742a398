package nodes

import (
	"math"

	"github.com/elementary-rt/elementary/internal/engine"
)

// phasorNode is a ramp oscillator: 0→1 at the rate given by its single
// inbound child (frequency in Hz), wrapping modulo 1. Phase state persists
// across blocks (spec C6 "may keep multi-buffer state ... phase
// accumulators").
type phasorNode struct {
	sampleRate   float64
	phase        float64
	freqOverride float64 // NaN when unset, meaning "read frequency from channel 0"
}

func newPhasor(hash uint32, sampleRate float64, blockSize int) engine.Node {
	return &phasorNode{sampleRate: sampleRate, freqOverride: math.NaN()}
}

func (n *phasorNode) SetProperty(key string, v any) engine.Status {
	if key != "freq" {
		return engine.StatusOK
	}
	f, ok := v.(float64)
	if !ok {
		return engine.StatusInvalidType
	}
	n.freqOverride = f
	return engine.StatusOK
}

func (n *phasorNode) Process(ctx *engine.ProcessContext) {
	freqIn := clampChannel(ctx, 0)

	out := ctx.OutputData[0]
	for i := range out {
		freq := n.freqOverride
		if math.IsNaN(freq) {
			if freqIn != nil {
				freq = float64(freqIn[i])
			} else {
				freq = 0
			}
		}
		out[i] = float32(n.phase)
		n.phase += freq / n.sampleRate
		n.phase -= math.Floor(n.phase)
	}
}

func (n *phasorNode) ProcessEvents(emit engine.EmitFunc) {}
func (n *phasorNode) NumOutputs() int                    { return 1 }
