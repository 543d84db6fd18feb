package rf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/ccrf/pkg/registers"
	"github.com/herlein/ccrf/pkg/sim"
)

// silentChip never delivers the DMA interrupt
type silentChip struct {
	*sim.Chip
}

func (silentChip) SetDMAHandler(func()) {}

// polledChip delivers the DMA interrupt only when asked, like a bus that
// samples DMAIRQ over USB.
type polledChip struct {
	*sim.Chip
	handler func()
	checks  int
}

func (p *polledChip) SetDMAHandler(fn func()) { p.handler = fn }

func (p *polledChip) CheckIRQ() (bool, error) {
	p.checks++
	irq, err := p.ReadRegister(registers.RegDMAIRQ)
	if err != nil {
		return false, err
	}
	if irq&0x01 == 0 {
		return false, nil
	}
	if err := p.WriteRegister(registers.RegDMAIRQ, irq&^0x01); err != nil {
		return false, err
	}
	if p.handler != nil {
		p.handler()
	}
	return true, nil
}

func dmaIRQ(t *testing.T, chip *sim.Chip) uint8 {
	t.Helper()
	v, err := chip.ReadRegister(registers.RegDMAIRQ)
	require.NoError(t, err)
	return v
}

func TestUndeliveredCompletionSurvivesSend(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, silentChip{chip})
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	stage(t, chip, 5, 'f', 'i', 'r', 's', 't', 0x50, registers.StatusCRCOK|0x01)
	chip.FireDMA()
	require.False(t, d.PendingPacket(), "no interrupt reached the driver")

	require.Equal(t, TxOK, d.Send([]byte("ack")))
	assert.True(t, d.PendingPacket(), "completion collected before re-arming")
	assert.False(t, chip.DMAArmed())

	buf := make([]byte, 128)
	n := d.Read(buf)
	assert.Equal(t, "first", string(buf[:n]))
	assert.Zero(t, dmaIRQ(t, chip)&0x01)
	assert.True(t, chip.DMAArmed())

	// The consumed frame is not collected a second time
	require.Equal(t, TxOK, d.Send([]byte("ack")))
	assert.False(t, d.PendingPacket())
	assert.True(t, chip.DMAArmed())
}

func TestPolledCompletionSurvivesSend(t *testing.T) {
	chip := sim.NewChip()
	hw := &polledChip{Chip: chip}
	d, _ := newTestDriver(t, hw)
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	stage(t, chip, 5, 'f', 'i', 'r', 's', 't', 0x50, registers.StatusCRCOK|0x01)
	chip.FireDMA()
	require.False(t, d.PendingPacket())

	checks := hw.checks
	require.Equal(t, TxOK, d.Send([]byte("ack")))
	assert.Greater(t, hw.checks, checks)
	assert.True(t, d.PendingPacket())
	assert.False(t, chip.DMAArmed())

	buf := make([]byte, 128)
	n := d.Read(buf)
	assert.Equal(t, "first", string(buf[:n]))
	assert.True(t, chip.DMAArmed())

	fired, err := hw.CheckIRQ()
	require.NoError(t, err)
	assert.False(t, fired, "read acknowledged the completion")
	assert.False(t, d.PendingPacket())
}

func TestOnHoldsReceptionForUnreadFrame(t *testing.T) {
	chip := sim.NewChip()
	d, _ := newTestDriver(t, chip)
	require.NoError(t, d.Init())
	require.NoError(t, d.On())

	stage(t, chip, 2, 'o', 'k', 0x50, registers.StatusCRCOK)
	chip.FireDMA()
	require.NoError(t, d.Off())
	require.NoError(t, d.On())

	assert.True(t, d.RXActive())
	assert.Equal(t, registers.StateRX, chip.State())
	assert.False(t, chip.DMAArmed())

	require.Equal(t, 2, d.Read(make([]byte, 8)))
	assert.True(t, chip.DMAArmed())
}

func TestInitAcknowledgesStaleCompletion(t *testing.T) {
	chip := sim.NewChip()
	require.NoError(t, chip.WriteRegister(registers.RegDMAIRQ, 0x01))

	d, _ := newTestDriver(t, silentChip{chip})
	require.NoError(t, d.Init())
	require.NoError(t, d.On())
	assert.False(t, d.PendingPacket())
	assert.True(t, chip.DMAArmed())
}
