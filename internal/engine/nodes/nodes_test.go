package nodes

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elementary-rt/elementary/internal/engine"
)

func process(n engine.Node, inputs [][]float32, numSamples int) []float32 {
	out := make([][]float32, n.NumOutputs())
	for i := range out {
		out[i] = make([]float32, numSamples)
	}
	ctx := &engine.ProcessContext{
		InputData:  inputs,
		NumInputs:  len(inputs),
		NumSamples: numSamples,
		OutputData: out,
		SampleRate: 44100,
	}
	n.Process(ctx)
	return out[0]
}

func TestConstEmitsFixedValue(t *testing.T) {
	n := newConst(1, 44100, 4)
	n.SetProperty("value", 0.25)
	out := process(n, nil, 4)
	for _, v := range out {
		assert.Equal(t, float32(0.25), v)
	}
}

func TestConstRejectsWrongType(t *testing.T) {
	n := newConst(1, 44100, 4)
	assert.Equal(t, engine.StatusInvalidType, n.SetProperty("value", "not-a-number"))
}

func TestPhasorRampsAndWraps(t *testing.T) {
	n := newPhasor(1, 4, 4) // 4Hz sample rate for easy math
	n.SetProperty("freq", 1.0)
	out := process(n, nil, 4)
	want := []float32{0, 0.25, 0.5, 0.75}
	for i, v := range out {
		assert.InDeltaf(t, want[i], v, 1e-6, "sample %d", i)
	}
	next := process(n, nil, 1)
	assert.InDelta(t, 0, next[0], 1e-6, "expected phase to wrap back to 0 after one full cycle")
}

func TestSinMapsThroughSine(t *testing.T) {
	n := newSin(1, 44100, 1)
	in := [][]float32{{float32(math.Pi / 2)}}
	out := process(n, in, 1)
	assert.InDelta(t, 1, out[0], 1e-5)
}

func TestSinZeroFillsWithNoInput(t *testing.T) {
	n := newSin(1, 44100, 3)
	out := process(n, nil, 3)
	for _, v := range out {
		assert.Equal(t, float32(0), v)
	}
}

func TestMulMultipliesAllChannels(t *testing.T) {
	n := newMul(1, 44100, 2)
	in := [][]float32{{2, 3}, {4, 5}}
	out := process(n, in, 2)
	assert.Equal(t, []float32{8, 15}, out)
}

func TestAddSumsAllChannels(t *testing.T) {
	n := newAdd(1, 44100, 2)
	in := [][]float32{{1, 1}, {2, 2}, {3, 3}}
	out := process(n, in, 2)
	assert.Equal(t, []float32{6, 6}, out)
}

func TestMixScalesByGain(t *testing.T) {
	n := newMix(1, 44100, 2)
	n.SetProperty("gain", 2.0)
	in := [][]float32{{1, 2}}
	out := process(n, in, 2)
	assert.Equal(t, []float32{2, 4}, out)
}

func TestBiquadAttenuatesAboveCutoff(t *testing.T) {
	n := newBiquad(1, 44100, 64)
	n.SetProperty("cutoff", 200.0)
	samples := make([]float32, 256)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 8000 * float64(i) / 44100))
	}
	in := [][]float32{samples}
	out := process(n, in, len(samples))

	inPeak, outPeak := float32(0), float32(0)
	for i, v := range out {
		if samples[i] > inPeak {
			inPeak = samples[i]
		}
		if v > outPeak {
			outPeak = v
		}
	}
	assert.Lessf(t, outPeak, inPeak, "expected lowpass to attenuate an 8kHz tone against a 200Hz cutoff, in peak %v out peak %v", inPeak, outPeak)
}

func TestTrainEmitsImpulseAtRate(t *testing.T) {
	n := newTrain(1, 4, 4) // 4Hz sample rate, 1Hz train => impulse every 4 samples
	n.SetProperty("rate", 1.0)
	out := process(n, nil, 4)
	assert.Equal(t, []float32{1, 0, 0, 0}, out)
}

func TestSeqAdvancesOnRisingTrigger(t *testing.T) {
	n := newSeq(1, 44100, 4)
	n.SetProperty("seq", []any{1.0, 2.0, 3.0})
	trig := [][]float32{{0, 1, 0, 1}}
	out := process(n, trig, 4)
	assert.Equal(t, []float32{1, 2, 2, 3}, out)
}

func TestSeqRejectsNonFloatEntries(t *testing.T) {
	n := newSeq(1, 44100, 4)
	assert.Equal(t, engine.StatusInvalidValue, n.SetProperty("seq", []any{1.0, "oops"}))
}

func TestMeterEmitsMinMax(t *testing.T) {
	n := newMeter(1, 44100, 4)
	in := [][]float32{{-1, 0.5, 2, -3}}
	process(n, in, 4)

	var got map[string]any
	n.ProcessEvents(func(topic string, payload any) {
		if topic == "meter" {
			got = payload.(map[string]any)
		}
	})
	require.NotNil(t, got, "expected a meter event")
	assert.Equal(t, float32(-3), got["min"])
	assert.Equal(t, float32(2), got["max"])
}

func TestBufferPlaysBackAndHoldsLastSample(t *testing.T) {
	resources := engine.NewResourceMap()
	resources.Update("kick.wav", []float32{1, 2, 3})
	n := NewBufferFactory(resources)(1, 44100, 8)
	require.Equal(t, engine.StatusOK, n.SetProperty("path", "kick.wav"), "expected acquire to succeed")

	out := process(n, nil, 5)
	assert.Equal(t, []float32{1, 2, 3, 3, 3}, out)
}

func TestBufferSetPropertyMissingPathIsInvalidValue(t *testing.T) {
	resources := engine.NewResourceMap()
	n := NewBufferFactory(resources)(1, 44100, 8)
	assert.Equal(t, engine.StatusInvalidValue, n.SetProperty("path", "missing.wav"))
}

func TestRegisterBuiltinsSkipsBufferWithoutResources(t *testing.T) {
	reg := engine.NewRegistry()
	RegisterBuiltins(reg, nil)
	_, ok := reg.Lookup("buffer")
	assert.False(t, ok, "expected buffer kind to be skipped when resources is nil")
	_, ok = reg.Lookup("const")
	assert.True(t, ok, "expected const kind to be registered")
}

func TestRegisterBuiltinsIncludesBufferWithResources(t *testing.T) {
	reg := engine.NewRegistry()
	RegisterBuiltins(reg, engine.NewResourceMap())
	_, ok := reg.Lookup("buffer")
	assert.True(t, ok, "expected buffer kind to be registered when resources is non-nil")
}
