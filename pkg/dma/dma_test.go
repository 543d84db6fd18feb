package dma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/ccrf/pkg/registers"
)

func TestRadioRXEncoding(t *testing.T) {
	d := RadioRX(0xF000, 130)
	b := d.Bytes()

	assert.Equal(t, byte(0xDF), b[0], "source high byte is the RFD mirror")
	assert.Equal(t, byte(0xD9), b[1])
	assert.Equal(t, byte(0xF0), b[2])
	assert.Equal(t, byte(0x00), b[3])
	assert.Equal(t, byte(VLenN3<<5), b[4])
	assert.Equal(t, byte(130), b[5])
	assert.Equal(t, byte(TriggerRadio), b[6], "single mode, byte size, radio trigger")
	assert.Equal(t, byte(0x10|0x08|0x02), b[7], "dst +1, irq, high priority")
}

func TestParseInvertsBytes(t *testing.T) {
	d := Descriptor{
		Src: 0x1234, Dst: 0xABCD, VLen: VLenN1, Len: 0x0FFF,
		WordSize: true, Mode: ModeRepeatedBlock, Trigger: 7,
		SrcInc: Inc2, DstInc: IncM1, IRQMask: true, M8: true, Priority: PriorityNormal,
	}
	b := d.Bytes()

	got, err := Parse(b[:])
	require.NoError(t, err)
	assert.Equal(t, d, got)

	_, err = Parse(b[:4])
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	d := RadioRX(0xF000, 130)
	assert.Equal(t, 8, d.Count(5), "length byte + 5 + 2 status bytes")
	assert.Equal(t, 3, d.Count(0))
	assert.Equal(t, 130, d.Count(200), "capped at LEN")

	fixed := Descriptor{Len: 16}
	assert.Equal(t, 16, fixed.Count(3))
}

type memBus struct {
	mem [0x10000]byte
}

func (m *memBus) ReadRegister(addr uint16) (uint8, error) { return m.mem[addr], nil }

func (m *memBus) WriteRegister(addr uint16, v uint8) error {
	if addr == registers.RegDMAARM && v&registers.DMAARMAbort != 0 {
		m.mem[addr] &^= v &^ registers.DMAARMAbort
		return nil
	}
	m.mem[addr] = v
	return nil
}

func (m *memBus) ReadBlock(addr uint16, n int) ([]byte, error) {
	out := make([]byte, n)
	copy(out, m.mem[addr:])
	return out, nil
}

func (m *memBus) WriteBlock(addr uint16, data []byte) error {
	copy(m.mem[addr:], data)
	return nil
}

func TestChannel0Lifecycle(t *testing.T) {
	bus := &memBus{}
	ch := NewChannel0(bus, 0xF100)

	require.NoError(t, ch.Configure(RadioRX(0xF000, 130)))
	assert.Equal(t, byte(0xF1), bus.mem[registers.RegDMA0CFGH])
	assert.Equal(t, byte(0x00), bus.mem[registers.RegDMA0CFGL])

	stored, err := Parse(bus.mem[0xF100 : 0xF100+DescriptorSize])
	require.NoError(t, err)
	assert.Equal(t, uint16(0xF000), stored.Dst)

	bus.mem[registers.RegDMAIRQ] = 0x01
	require.NoError(t, ch.Arm())
	armed, err := ch.Armed()
	require.NoError(t, err)
	assert.True(t, armed)
	assert.Zero(t, bus.mem[registers.RegDMAIRQ]&0x01, "stale completion cleared on arm")

	require.NoError(t, ch.Abort())
	armed, err = ch.Armed()
	require.NoError(t, err)
	assert.False(t, armed)
}
