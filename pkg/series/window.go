// Package series holds the rolling time windows the locomotion controller
// keeps around the character: the root trajectory (RootSeries) and the
// periodic gait state (PhaseBank).
//
// A window spans PastKeys keys behind the present and FutureKeys keys
// ahead of it. Keys sit Resolution samples apart, so the sample window
// holds (PastKeys+FutureKeys)*Resolution+1 samples with the present at
// the pivot sample.
package series

// Window describes the geometry of a time window.
type Window struct {
	PastKeys   int
	FutureKeys int
	Resolution int
}

// DefaultWindow is one second of history and one second of lookahead at
// 60 fps, keyed every 10 frames.
func DefaultWindow() Window {
	return Window{PastKeys: 6, FutureKeys: 6, Resolution: 10}
}

// NumKeys returns the number of keys including the pivot key.
func (w Window) NumKeys() int {
	return w.PastKeys + w.FutureKeys + 1
}

// NumSamples returns the number of samples in the window.
func (w Window) NumSamples() int {
	return (w.PastKeys+w.FutureKeys)*w.Resolution + 1
}

// Pivot returns the sample index of the present.
func (w Window) Pivot() int {
	return w.PastKeys * w.Resolution
}

// PivotKey returns the key index of the present.
func (w Window) PivotKey() int {
	return w.PastKeys
}

// KeySample returns the sample index of key k.
func (w Window) KeySample(k int) int {
	return k * w.Resolution
}

// KeySamples returns the sample index of every key in order.
func (w Window) KeySamples() []int {
	out := make([]int, w.NumKeys())
	for k := range out {
		out[k] = w.KeySample(k)
	}
	return out
}

// FutureKeySamples returns the sample indices of the keys after the pivot.
func (w Window) FutureKeySamples() []int {
	return w.KeySamples()[w.PivotKey()+1:]
}
