package rf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/herlein/ccrf/pkg/config"
	"github.com/herlein/ccrf/pkg/registers"
	"github.com/herlein/ccrf/pkg/sim"
)

type headerBuf []byte

func (h headerBuf) Header() []byte { return h }

func TestPrepareIsNoop(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	assert.Zero(t, d.Prepare([]byte("anything")))
	assert.Empty(t, chip.Strobes())
}

func TestTransmitCollision(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	chip.SetChannelBusy(true)
	chip.ResetRecorders()

	assert.Equal(t, TxCollision, d.Send([]byte("Hello")))
	assert.Zero(t, chip.RFDWrites(), "no byte may reach the FIFO")
	assert.NotContains(t, chip.Strobes(), uint8(registers.StrobeSTX))
	assert.Equal(t, uint64(1), d.Stats().ContentionDrop)
	assert.Zero(t, d.Stats().LLTX)
	assert.True(t, d.RXActive())
	assert.True(t, chip.DMAArmed())
}

func TestTransmitCollisionWhileOffPowersBackOff(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())
	chip.SetChannelBusy(true)

	assert.Equal(t, TxCollision, d.Send([]byte("Hello")))
	assert.Equal(t, []uint8{registers.StrobeSRX, registers.StrobeSIDLE}, chip.Strobes())
	assert.False(t, d.RXActive())
	assert.Zero(t, d.flags&flagWasOff, "restore clears WAS_OFF")
}

func TestTransmitStreamsLengthPrefixedFrame(t *testing.T) {
	chip := sim.NewChip()
	frame := headerBuf("Hello\x00")
	d, _ := newTestDriver(t, chip, WithPacketSource(frame))
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	assert.Equal(t, TxOK, d.Transmit(len(frame)))

	sent := chip.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, append([]byte{6}, frame...), sent[0])
	assert.Equal(t, 7, chip.RFDWrites())
	assert.Equal(t, uint64(1), d.Stats().LLTX)
}

func TestTransmitLengthOutOfRange(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())

	assert.Equal(t, TxErr, d.Transmit(1), "no packet source")

	d.SetPacketSource(headerBuf("abc"))
	assert.Equal(t, TxErr, d.Transmit(4))
	assert.Equal(t, TxErr, d.Transmit(-1))
	assert.Equal(t, TxErr, d.Send(make([]byte, config.MaxPacketLen+1)))
	assert.Zero(t, chip.RFDWrites())
}

func TestTransmitEmptyFrame(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip, WithPacketSource(headerBuf("abc")))
	require.NoError(t, d.Init())
	require.NoError(t, d.On())
	chip.ResetRecorders()

	assert.Equal(t, TxErr, d.Transmit(0))
	assert.Equal(t, TxErr, d.Send(nil))
	assert.Equal(t, TxErr, d.Send([]byte{}))
	assert.Zero(t, chip.RFDWrites())
	assert.Empty(t, chip.Sent())
	assert.Empty(t, chip.Strobes())
	assert.Zero(t, d.Stats().LLTX)
	assert.True(t, d.RXActive())
}

func TestTransmitTwiceFromRXRestoresRX(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	for i := 0; i < 2; i++ {
		require.Equal(t, TxOK, d.Send([]byte("ping")))
		assert.True(t, d.RXActive(), "transmit %d", i)
		assert.True(t, chip.DMAArmed())
		assert.Equal(t, registers.StateRX, chip.State())

		chip.SetReceiving(true)
		assert.True(t, d.ReceivingPacket())
		chip.SetReceiving(false)
	}
	assert.Equal(t, []uint8{registers.StrobeSRX, registers.StrobeSTX, registers.StrobeSTX}, chip.Strobes())
	assert.Equal(t, uint64(2), d.Stats().LLTX)
}

func TestTransmitFromOffSettlesAndPowersOff(t *testing.T) {
	require.Equal(t, 320*time.Microsecond, config.Default().SettleTime)

	// Same frame from a receiving radio, for the time the transmit itself takes
	onChip := sim.NewChip()
	on, onClock := newTestDriver(t, onChip)
	require.NoError(t, on.Init())
	require.NoError(t, on.On())
	start := onClock.Elapsed()
	require.Equal(t, TxOK, on.Send([]byte("Hello")))
	fromRX := onClock.Elapsed() - start

	chip := sim.NewChip()
	d, clock := newTestDriver(t, chip)
	require.NoError(t, d.Init())

	start = clock.Elapsed()
	assert.Equal(t, TxOK, d.Send([]byte("Hello")))
	assert.Equal(t, []uint8{registers.StrobeSRX, registers.StrobeSTX, registers.StrobeSIDLE}, chip.Strobes())
	assert.False(t, d.RXActive())
	assert.False(t, chip.DMAArmed())
	assert.Equal(t, registers.StateIDLE, chip.State())
	assert.Zero(t, d.flags&flagWasOff)

	// The warm-up is the settle time plus the clock read that starts it
	settled := clock.Elapsed() - start - fromRX
	assert.GreaterOrEqual(t, settled, 320*time.Microsecond)
	assert.LessOrEqual(t, settled, 330*time.Microsecond)
}

func TestTransmitWithSlowStateMachine(t *testing.T) {
	chip := sim.NewChip(sim.WithLatency(5))
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	assert.Equal(t, TxOK, d.Send([]byte("slow")))
	require.Len(t, chip.Sent(), 1)
}

func TestTransmitDoneNeverRaisedTimesOut(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	chip.SetStuckTX(true)
	assert.Equal(t, TxTimeout, d.Send([]byte("stuck")))
	assert.Equal(t, uint64(1), d.Stats().Timeouts)
	assert.Zero(t, d.Stats().LLTX)

	// Forced back to IDLE, then receiving again
	assert.True(t, d.RXActive())
	assert.True(t, chip.DMAArmed())
	assert.Equal(t, registers.StateRX, chip.State())
	assert.NoError(t, d.Error(), "a timeout is reported through the result")

	chip.SetStuckTX(false)
	assert.Equal(t, TxOK, d.Send([]byte("again")))
}

func TestTransmitNeverEntersTXTimesOut(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())

	chip.SetStuck(true)
	assert.Equal(t, TxTimeout, d.Send([]byte("stuck")))
	assert.Zero(t, chip.RFDWrites())
	assert.False(t, d.RXActive(), "radio that was off stays off")
	assert.Zero(t, d.flags&flagWasOff)
}

func TestTransmitClearsStaleDone(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	require.NoError(t, registers.SetBits(chip, registers.RegRFIF, registers.RFIFDone))
	chip.SetStuckTX(true)
	assert.Equal(t, TxTimeout, d.Send([]byte("x")), "a stale DONE must not complete the frame")
}

func TestTransmitTimeoutKeepsUnreadFrame(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	stage(t, chip, 4, 'k', 'e', 'e', 'p', 0x50, registers.StatusCRCOK)
	chip.FireDMA()
	chip.SetStuckTX(true)
	require.Equal(t, TxTimeout, d.Send([]byte("stuck")))

	assert.True(t, d.RXActive())
	assert.Equal(t, registers.StateRX, chip.State())
	assert.False(t, chip.DMAArmed(), "reception waits for the unread frame")
	require.True(t, d.PendingPacket())

	buf := make([]byte, 8)
	require.Equal(t, 4, d.Read(buf))
	assert.Equal(t, "keep", string(buf[:4]))
	assert.True(t, chip.DMAArmed())
}

func TestUnreadFrameIsNotOverwritten(t *testing.T) {
	air := sim.NewAir()
	chipA, chipB := sim.NewChip(), sim.NewChip()
	air.Attach(chipA, chipB)

	a, _ := newTestDriver(t, chipA)
	b, _ := newTestDriver(t, chipB)
	for _, d := range []*Driver{a, b} {
		require.NoError(t, d.Init())
		require.NoError(t, d.On())
	}

	require.Equal(t, TxOK, a.Send([]byte("first")))
	require.True(t, b.PendingPacket())

	// B answers before reading: its receiver comes back without DMA
	require.Equal(t, TxOK, b.Send([]byte("ack")))
	assert.True(t, b.RXActive())
	assert.False(t, chipB.DMAArmed())
	require.True(t, a.PendingPacket())

	require.Equal(t, TxOK, a.Send([]byte("second")))
	assert.Equal(t, 1, chipB.Dropped(), "second arrives with nowhere to land")

	buf := make([]byte, 128)
	n := b.Read(buf)
	assert.Equal(t, "first", string(buf[:n]))
	assert.True(t, chipB.DMAArmed())
	assert.False(t, b.PendingPacket())

	n = a.Read(buf)
	assert.Equal(t, "ack", string(buf[:n]))

	require.Equal(t, TxOK, a.Send([]byte("third")))
	require.True(t, b.PendingPacket())
	n = b.Read(buf)
	assert.Equal(t, "third", string(buf[:n]))
}

func TestRoundTripOverAir(t *testing.T) {
	air := sim.NewAir()
	txChip, rxChip := sim.NewChip(), sim.NewChip()
	air.Attach(txChip, rxChip)

	tx, _ := newTestDriver(t, txChip)
	rx, _ := newTestDriver(t, rxChip)
	for _, d := range []*Driver{tx, rx} {
		require.NoError(t, d.Init())
		require.NoError(t, d.On())
	}

	buf := make([]byte, 128)
	rapid.Check(t, func(rt *rapid.T) {
		length := rapid.IntRange(1, config.MaxPacketLen).Draw(rt, "length")
		payload := rapid.SliceOfN(rapid.Byte(), length, length).Draw(rt, "payload")

		src := headerBuf(payload)
		tx.SetPacketSource(src)
		if got := tx.Transmit(length); got != TxOK {
			rt.Fatalf("transmit returned %v", got)
		}
		if !rx.PendingPacket() {
			rt.Fatalf("no packet pending after transmit of %d bytes", length)
		}

		n := rx.Read(buf)
		assert.Equal(rt, length, n)
		assert.Equal(rt, payload, buf[:n])
		assert.False(rt, rx.PendingPacket())
		assert.True(rt, tx.RXActive())
	})
}

func TestRoundTripReportsCRCFailure(t *testing.T) {
	air := sim.NewAir()
	txChip, rxChip := sim.NewChip(), sim.NewChip()
	air.Attach(txChip, rxChip)
	air.SetCorrupt(true)

	tx, _ := newTestDriver(t, txChip)
	rx, _ := newTestDriver(t, rxChip)
	for _, d := range []*Driver{tx, rx} {
		require.NoError(t, d.Init())
		require.NoError(t, d.On())
	}

	require.Equal(t, TxOK, tx.Send([]byte("noise")))
	require.True(t, rx.PendingPacket())
	assert.Zero(t, rx.Read(make([]byte, 128)))
	assert.Equal(t, uint64(1), rx.Stats().BadCRC)
}
