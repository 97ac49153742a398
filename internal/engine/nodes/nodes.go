// Package nodes implements the built-in primitive kinds registered with
// the engine at startup (spec §6 "populated at init with the built-in
// kinds"). Each type satisfies engine.Node.
package nodes

import (
	"github.com/elementary-rt/elementary/internal/engine"
)

// RegisterBuiltins installs every kind this package implements into reg.
// resources may be nil if the engine has no shared resource map, in which
// case the "buffer" kind is skipped.
func RegisterBuiltins(reg *engine.Registry, resources *engine.ResourceMap) {
	reg.Register("const", newConst)
	reg.Register("phasor", newPhasor)
	reg.Register("sin", newSin)
	reg.Register("mul", newMul)
	reg.Register("add", newAdd)
	reg.Register("mix", newMix)
	reg.Register("biquad", newBiquad)
	reg.Register("train", newTrain)
	reg.Register("seq", newSeq)
	reg.Register("meter", newMeter)
	if resources != nil {
		reg.Register("buffer", NewBufferFactory(resources))
	}
}

// zeroFill writes silence to every output plane, the required fallback
// when a node lacks enough inbound channels to do anything meaningful
// this block (spec §7 "fills its output with zeros rather than allowing
// undefined samples").
func zeroFill(ctx *engine.ProcessContext) {
	for _, plane := range ctx.OutputData {
		for i := range plane {
			plane[i] = 0
		}
	}
}

func clampChannel(ctx *engine.ProcessContext, i int) []float32 {
	if i < 0 || i >= len(ctx.InputData) || ctx.InputData[i] == nil {
		return nil
	}
	return ctx.InputData[i]
}
