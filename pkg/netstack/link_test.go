package netstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLinkEstimatorFirstValue(t *testing.T) {
	e := NewLinkEstimator()
	assert.Equal(t, -80.0, e.Update(-80))
	assert.Equal(t, -80, e.RSSI())
	assert.Equal(t, uint64(1), e.Frames())
}

func TestLinkEstimatorAdapts(t *testing.T) {
	e := NewLinkEstimatorWithParams(6, 0.5, 0.1)
	e.Update(-80)

	// Small change: slow coefficient
	assert.InDelta(t, -79.8, e.Update(-78), 1e-9)

	// Large jump: fast coefficient
	assert.InDelta(t, -64.9, e.Update(-50), 1e-9)

	e.Reset()
	assert.Zero(t, e.Frames())
	assert.Equal(t, -40.0, e.Update(-40))
}

func TestLinkEstimatorStaysInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		samples := rapid.SliceOfN(rapid.IntRange(-138, 0), 1, 50).Draw(rt, "rssi")
		e := NewLinkEstimator()
		lo, hi := samples[0], samples[0]
		for _, s := range samples {
			e.Update(s)
			lo, hi = min(lo, s), max(hi, s)
		}
		assert.GreaterOrEqual(rt, e.RSSI(), lo)
		assert.LessOrEqual(rt, e.RSSI(), hi)
	})
}
