package series

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-locomotion/pkg/geom"
)

// Phase defaults.
const (
	DefaultPhaseChannels = 5
	MinAmplitude         = 0.01
)

// Vec2 is a point on the phase plane.
type Vec2 [2]float64

// PhaseBank tracks a phase, frequency and amplitude per channel for every
// key of a window. Phases are scalars in [0,1) but are blended through
// their unit-circle embedding so that values near the wrap point mix
// correctly.
type PhaseBank struct {
	window    Window
	channels  int
	frameRate float64

	// [key][channel]
	phase     [][]float64
	frequency [][]float64
	amplitude [][]float64
}

// NewPhaseBank creates a bank with phase 0, frequency 1 and amplitude 1
// everywhere.
func NewPhaseBank(w Window, channels int, frameRate float64) *PhaseBank {
	keys := w.NumKeys()
	b := &PhaseBank{
		window:    w,
		channels:  channels,
		frameRate: frameRate,
		phase:     make([][]float64, keys),
		frequency: make([][]float64, keys),
		amplitude: make([][]float64, keys),
	}
	for k := 0; k < keys; k++ {
		b.phase[k] = make([]float64, channels)
		b.frequency[k] = make([]float64, channels)
		b.amplitude[k] = make([]float64, channels)
		for c := 0; c < channels; c++ {
			b.frequency[k][c] = 1
			b.amplitude[k][c] = 1
		}
	}
	return b
}

// Channels returns the number of phase channels.
func (b *PhaseBank) Channels() int { return b.channels }

// Keys returns the number of keys in the window.
func (b *PhaseBank) Keys() int { return len(b.phase) }

// FutureSlots returns how many keys UpdateFuture writes: the pivot key and
// every key after it.
func (b *PhaseBank) FutureSlots() int {
	return b.Keys() - b.window.PivotKey()
}

// Phase returns the phase of channel c at key k.
func (b *PhaseBank) Phase(k, c int) float64 { return b.phase[k][c] }

// Frequency returns the frequency of channel c at key k.
func (b *PhaseBank) Frequency(k, c int) float64 { return b.frequency[k][c] }

// Amplitude returns the amplitude of channel c at key k.
func (b *PhaseBank) Amplitude(k, c int) float64 { return b.amplitude[k][c] }

// AdvancePast shifts every past key one step toward the present, dropping
// the oldest key. The key just before the pivot takes the pivot's values.
func (b *PhaseBank) AdvancePast() {
	for k := 0; k < b.window.PivotKey(); k++ {
		copy(b.phase[k], b.phase[k+1])
		copy(b.frequency[k], b.frequency[k+1])
		copy(b.amplitude[k], b.amplitude[k+1])
	}
}

// UpdateFuture writes the network's predictions into the pivot key and the
// keys after it. For every slot and channel the stored phase is advanced one
// frame at the predicted frequency and slerped toward the predicted phase by bias:
// 0 keeps the advanced phase, 1 takes the prediction. Frequency and
// amplitude are stored as given, made positive and with amplitude floored
// at MinAmplitude.
func (b *PhaseBank) UpdateFuture(phases [][]Vec2, frequencies, amplitudes [][]float64, bias float64) error {
	slots := b.FutureSlots()
	if len(phases) < slots || len(frequencies) < slots || len(amplitudes) < slots {
		return fmt.Errorf("series: phase update needs %d slots, got %d/%d/%d",
			slots, len(phases), len(frequencies), len(amplitudes))
	}

	for s := 0; s < slots; s++ {
		if len(phases[s]) < b.channels || len(frequencies[s]) < b.channels || len(amplitudes[s]) < b.channels {
			return fmt.Errorf("series: phase slot %d has fewer than %d channels", s, b.channels)
		}

		k := b.window.PivotKey() + s
		for c := 0; c < b.channels; c++ {
			freq := math.Abs(frequencies[s][c])
			amp := math.Max(math.Abs(amplitudes[s][c]), MinAmplitude)

			current := Embed(b.phase[k][c], 1)
			mixed := b.advance(current, phases[s][c], freq, bias)

			b.phase[k][c] = CalcPhaseValue(mixed)
			b.frequency[k][c] = freq
			b.amplitude[k][c] = amp
		}
	}
	return nil
}

// advance rotates current backward by one frame's worth of phase at freq
// and slerps it toward next by bias.
func (b *PhaseBank) advance(current, next Vec2, freq, bias float64) Vec2 {
	angle := -math.Abs(freq) * 2 * math.Pi / b.frameRate
	sin, cos := math.Sincos(angle)
	rotated := Vec2{
		current[0]*cos - current[1]*sin,
		current[0]*sin + current[1]*cos,
	}

	rotated = unit2(rotated)
	next = unit2(next)
	if next == (Vec2{}) {
		return rotated
	}
	return slerp2(rotated, next, bias)
}

// FlattenedPhaseSequence returns, for every key in order and every channel
// in order, the amplitude-scaled phase embedding. This ordering is the
// model input layout.
func (b *PhaseBank) FlattenedPhaseSequence() []Vec2 {
	out := make([]Vec2, 0, b.Keys()*b.channels)
	for k := range b.phase {
		for c := 0; c < b.channels; c++ {
			out = append(out, Embed(b.phase[k][c], b.amplitude[k][c]))
		}
	}
	return out
}

// FrequencySequence returns the frequency of channel c at every key.
func (b *PhaseBank) FrequencySequence(c int) []float64 {
	out := make([]float64, b.Keys())
	for k := range out {
		out[k] = b.frequency[k][c]
	}
	return out
}

// Embed maps a phase in [0,1) onto a circle of radius amplitude:
// (sin 2πp, cos 2πp) * amplitude.
func Embed(phase, amplitude float64) Vec2 {
	sin, cos := math.Sincos(2 * math.Pi * phase)
	return Vec2{sin * amplitude, cos * amplitude}
}

// CalcPhaseValue recovers the phase in [0,1) from its embedding. The
// magnitude of v is ignored.
func CalcPhaseValue(v Vec2) float64 {
	n := unit2(v)
	if n == (Vec2{}) {
		return 0
	}

	degrees := -geom.OrientedAngle([2]float64{0, 1}, n) * 180 / math.Pi
	if degrees < 0 {
		degrees += 360
	}
	p := math.Mod(degrees/360, 1)
	switch {
	case p < 0:
		p += 1
	case p == 0:
		// Drop the sign of a negative zero.
		p = 0
	}
	return p
}

func unit2(v Vec2) Vec2 {
	n := math.Hypot(v[0], v[1])
	if n < 1e-12 {
		return Vec2{}
	}
	return Vec2{v[0] / n, v[1] / n}
}

// slerp2 interpolates along the shorter arc between unit vectors a and b.
func slerp2(a, b Vec2, t float64) Vec2 {
	if a == (Vec2{}) {
		return b
	}
	cos := a[0]*b[0] + a[1]*b[1]
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	theta := math.Acos(cos)
	if theta < 1e-9 {
		return a
	}

	sin := math.Sin(theta)
	if sin < 1e-9 {
		// Antipodal: every great circle is shortest, turn counter-clockwise.
		angle := t * math.Pi
		s, c := math.Sincos(angle)
		return Vec2{a[0]*c - a[1]*s, a[0]*s + a[1]*c}
	}

	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return unit2(Vec2{wa*a[0] + wb*b[0], wa*a[1] + wb*b[1]})
}
