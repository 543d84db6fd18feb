package netstack

import "math"

// Smoothing defaults: a jump of more than 6 dB is a new link condition and
// is followed quickly, smaller changes are treated as fading.
const (
	DefaultSmoothThreshold = 6.0
	DefaultKFast           = 0.5
	DefaultKSlow           = 0.1
)

// LinkEstimator smooths the RSSI of received frames with an adaptive
// exponential moving average.
type LinkEstimator struct {
	value     float64
	primed    bool
	threshold float64 // dB
	kFast     float64
	kSlow     float64
	frames    uint64
}

// NewLinkEstimator returns an estimator with the default coefficients
func NewLinkEstimator() *LinkEstimator {
	return NewLinkEstimatorWithParams(DefaultSmoothThreshold, DefaultKFast, DefaultKSlow)
}

// NewLinkEstimatorWithParams returns an estimator with custom coefficients
func NewLinkEstimatorWithParams(threshold, kFast, kSlow float64) *LinkEstimator {
	return &LinkEstimator{threshold: threshold, kFast: kFast, kSlow: kSlow}
}

// Update folds in the RSSI of one frame and returns the new estimate
func (e *LinkEstimator) Update(rssi int) float64 {
	e.frames++
	v := float64(rssi)
	if !e.primed {
		e.value = v
		e.primed = true
		return v
	}

	k := e.kSlow
	if math.Abs(v-e.value) > e.threshold {
		k = e.kFast
	}
	e.value += (v - e.value) * k
	return e.value
}

// RSSI returns the smoothed RSSI in dBm, rounded
func (e *LinkEstimator) RSSI() int {
	return int(math.Round(e.value))
}

// Frames returns the number of frames seen since the last Reset
func (e *LinkEstimator) Frames() uint64 {
	return e.frames
}

// Reset forgets the link history
func (e *LinkEstimator) Reset() {
	e.value = 0
	e.primed = false
	e.frames = 0
}
