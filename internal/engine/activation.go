package engine

// GainFade is a linear per-sample gain ramp between 0 and 1 (spec §4.7).
// Settling happens when current reaches target; callers check Settled
// before deciding whether a fading-out root can be dropped from the live
// evaluation set.
type GainFade struct {
	current float64
	target  float64
	step    float64 // per-sample delta, always >= 0; direction comes from target-current sign
}

// newGainFade derives a per-sample step from sampleRate and the
// requested fade duration in milliseconds. A zero or negative duration
// steps instantly (one sample).
func newGainFade(sampleRate, durationMs float64) GainFade {
	return GainFade{step: fadeStep(sampleRate, durationMs)}
}

// Settled reports whether the fade has reached its target.
func (g *GainFade) Settled() bool { return g.current == g.target }

// process advances the fade by up to n samples and returns the gain to
// apply for each of those samples, written into out (len(out) == n).
// Grounded on the spec's "per-sample in/out step derived from sampleRate
// and requested fade times" (§4.7); this is a plain per-sample integrator,
// no allocation, called from the audio thread's mix step.
func (g *GainFade) process(out []float64) {
	for i := range out {
		// Snap to target within a tiny tolerance so float accumulation
		// (e.g. ten steps of 0.1) settles on the expected sample.
		if g.current < g.target {
			g.current += g.step
			if g.current > g.target-1e-9 {
				g.current = g.target
			}
		} else if g.current > g.target {
			g.current -= g.step
			if g.current < g.target+1e-9 {
				g.current = g.target
			}
		}
		out[i] = g.current
	}
}

// rootState is a root's membership + fade state, analogous to the
// teacher's per-supervisor congestion state
// (kernel/threads/supervisor/flow_control.go SupervisorState) but tracking
// fade-in/out progress instead of queue depth.
type rootState struct {
	fade GainFade
}

// ActivationController holds the active and target root sets and drives
// their cross-fade (spec C8). Owned by the audio thread; ACTIVATE_ROOTS is
// the only instruction that mutates it.
type ActivationController struct {
	sampleRate float64
	roots      map[uint32]*rootState
	order      []uint32 // stable iteration order for deterministic mixing
}

// NewActivationController returns a controller with an empty root set.
func NewActivationController(sampleRate float64) *ActivationController {
	return &ActivationController{sampleRate: sampleRate, roots: make(map[uint32]*rootState)}
}

// Activate applies ACTIVATE_ROOTS(hashes, fadeInMs, fadeOutMs) (spec §4.7).
func (a *ActivationController) Activate(hashes []uint32, fadeInMs, fadeOutMs float64) {
	want := make(map[uint32]bool, len(hashes))
	for _, h := range hashes {
		want[h] = true
	}

	for h := range want {
		st, ok := a.roots[h]
		if !ok {
			st = &rootState{fade: newGainFade(a.sampleRate, fadeInMs)}
			a.roots[h] = st
			a.order = append(a.order, h)
		}
		if st.fade.target == 0 {
			st.fade.step = fadeStep(a.sampleRate, fadeInMs)
		}
		st.fade.target = 1
	}

	for h, st := range a.roots {
		if !want[h] {
			st.fade.target = 0
			st.fade.step = fadeStep(a.sampleRate, fadeOutMs)
		}
	}
}

func fadeStep(sampleRate, durationMs float64) float64 {
	if durationMs <= 0 {
		return 1
	}
	return 1 / (sampleRate * durationMs / 1000)
}

// Advance steps every root's fade by numSamples and returns, per root
// hash still present, the per-sample gain series to apply during mixing.
// Settled roots at target 0 are dropped from the live set (and the caller
// should ReleaseRoot them on the store).
func (a *ActivationController) Advance(numSamples int) (gains map[uint32][]float64, dropped []uint32) {
	gains = make(map[uint32][]float64, len(a.roots))
	for _, h := range a.order {
		st, ok := a.roots[h]
		if !ok {
			continue
		}
		series := make([]float64, numSamples)
		st.fade.process(series)
		gains[h] = series
		if st.fade.Settled() && st.fade.target == 0 {
			dropped = append(dropped, h)
		}
	}
	for _, h := range dropped {
		delete(a.roots, h)
		a.removeFromOrder(h)
	}
	return gains, dropped
}

func (a *ActivationController) removeFromOrder(h uint32) {
	for i, x := range a.order {
		if x == h {
			a.order = append(a.order[:i], a.order[i+1:]...)
			return
		}
	}
}

// ActiveHashes returns the current root hash set in stable order, used by
// the reconciler-facing idempotence check and by GC's reachability pass.
func (a *ActivationController) ActiveHashes() []uint32 {
	out := make([]uint32, 0, len(a.order))
	out = append(out, a.order...)
	return out
}
