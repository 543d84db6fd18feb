package board

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/ccrf/pkg/registers"
	"github.com/herlein/ccrf/pkg/sim"
)

func TestOpenSim(t *testing.T) {
	b, err := Open(KindSim, "")
	require.NoError(t, err)
	defer b.Close()

	require.NotNil(t, b.Air)
	assert.Nil(t, b.Device())
	state, err := registers.GetRadioState(b.Hardware())
	require.NoError(t, err)
	assert.Equal(t, registers.StateIDLE, state)

	peer, err := b.Peer()
	require.NoError(t, err)

	// A frame from the peer reaches the board's chip through the shared air
	require.NoError(t, registers.Strobe(peer, registers.StrobeSTX))
	require.NoError(t, peer.WriteRegister(registers.RegRFD, 1))
	require.NoError(t, peer.WriteRegister(registers.RegRFD, 'x'))
	assert.Equal(t, 1, b.Hardware().(*sim.Chip).Dropped(), "board chip was not listening")
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("serial", "")
	assert.Error(t, err)
}

func TestPeerNeedsSim(t *testing.T) {
	b := &Board{Kind: KindYardstick}
	_, err := b.Peer()
	assert.Error(t, err)
}

func TestRunSimWaitsForCancel(t *testing.T) {
	b, err := Open(KindSim, "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.NoError(t, b.Run(ctx, time.Millisecond))
	assert.Error(t, ctx.Err())
}

func TestTicker(t *testing.T) {
	var presses atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Ticker(ctx, time.Millisecond, func() { presses.Add(1) })
		close(done)
	}()

	require.Eventually(t, func() bool { return presses.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
