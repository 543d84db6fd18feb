// Package sim simulates the parts of a CC1110 the radio driver touches: the
// XDATA image with the radio register file, the strobe-driven main radio
// state machine, the single byte RFD FIFO, and DMA channel 0.
package sim

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/herlein/ccrf/pkg/dma"
	"github.com/herlein/ccrf/pkg/registers"
)

// Chip is a simulated CC1110. It satisfies registers.Bus and the driver's
// hardware interface. All methods are safe for concurrent use; the DMA
// completion handler is always called without the chip's lock held.
type Chip struct {
	mu  sync.Mutex
	mem [0x10000]byte

	state   registers.RadioState
	target  registers.RadioState
	pending int // MARCSTATE reads until target is reached, -1 when idle

	latency  int
	busy     bool
	sfd      bool
	forced   bool
	forcedTo registers.RadioState
	stuck    bool
	stuckTX  bool

	handler func()
	air     *Air

	tx        []byte
	strobes   []uint8
	rfdWrites int
	sent      [][]byte
	dropped   int

	logger *log.Logger
}

// Option configures a Chip
type Option func(*Chip)

// WithLatency makes every state transition take n MARCSTATE reads
func WithLatency(n int) Option {
	return func(c *Chip) { c.latency = n }
}

// WithLogger sets the logger used for tracing
func WithLogger(l *log.Logger) Option {
	return func(c *Chip) { c.logger = l }
}

// NewChip returns a chip fresh out of reset, radio in IDLE
func NewChip(opts ...Option) *Chip {
	c := &Chip{
		state:   registers.StateIDLE,
		pending: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "sim", Level: log.WarnLevel})
	}

	def := registers.ResetDefaults()
	// Reset values go straight into memory; the status block is filled in below
	c.writeRegisterMap(&def)
	c.mem[registers.RegPARTNUM] = registers.PartNumCC1110
	c.mem[registers.RegVERSION] = 0x03
	c.mem[registers.RegMARCSTATE] = uint8(c.state)
	return c
}

func (c *Chip) writeRegisterMap(reg *registers.RegisterMap) {
	// registers.WriteAllRegisters never touches the strobe or DMA registers,
	// so driving it through the memory image directly is side effect free.
	_ = registers.WriteAllRegisters(memBus{c}, reg)
}

// memBus is raw access to the memory image, used before the chip is shared
type memBus struct{ c *Chip }

func (m memBus) ReadRegister(addr uint16) (uint8, error) { return m.c.mem[addr], nil }
func (m memBus) WriteRegister(addr uint16, v uint8) error {
	m.c.mem[addr] = v
	return nil
}
func (m memBus) ReadBlock(addr uint16, n int) ([]byte, error) {
	out := make([]byte, n)
	copy(out, m.c.mem[addr:])
	return out, nil
}
func (m memBus) WriteBlock(addr uint16, data []byte) error {
	copy(m.c.mem[addr:], data)
	return nil
}

// SetDMAHandler installs the DMA completion interrupt handler
func (c *Chip) SetDMAHandler(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

// ReadRegister reads one byte of XDATA. MARCSTATE reads advance any
// in-flight state transition.
func (c *Chip) ReadRegister(addr uint16) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch addr {
	case registers.RegMARCSTATE:
		if c.forced {
			return uint8(c.forcedTo), nil
		}
		c.stepLocked()
		return uint8(c.state), nil
	case registers.RegPKTSTATUS:
		return c.pktStatusLocked(), nil
	}
	return c.mem[addr], nil
}

// WriteRegister writes one byte of XDATA. RFST, RFD and DMAARM act on the
// simulated hardware instead of plain memory.
func (c *Chip) WriteRegister(addr uint16, v uint8) error {
	c.mu.Lock()

	switch addr {
	case registers.RegRFST:
		c.strobeLocked(v)
		c.mu.Unlock()
		return nil
	case registers.RegRFD:
		frame := c.rfdLocked(v)
		air := c.air
		c.mu.Unlock()
		if frame != nil && air != nil {
			air.broadcast(c, frame)
		}
		return nil
	case registers.RegDMAARM:
		if v&registers.DMAARMAbort != 0 {
			c.mem[addr] &^= v & 0x1F
		} else {
			c.mem[addr] |= v & 0x1F
		}
		c.mu.Unlock()
		return nil
	case registers.RegMARCSTATE, registers.RegPKTSTATUS:
		c.mu.Unlock()
		return fmt.Errorf("register 0x%04X is read-only", addr)
	}

	c.mem[addr] = v
	c.mu.Unlock()
	return nil
}

// ReadBlock copies a range of XDATA
func (c *Chip) ReadBlock(addr uint16, n int) ([]byte, error) {
	if int(addr)+n > len(c.mem) {
		return nil, fmt.Errorf("block read past end of XDATA: 0x%04X+%d", addr, n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]byte, n)
	copy(out, c.mem[addr:])
	return out, nil
}

// WriteBlock copies data into XDATA without register side effects
func (c *Chip) WriteBlock(addr uint16, data []byte) error {
	if int(addr)+len(data) > len(c.mem) {
		return fmt.Errorf("block write past end of XDATA: 0x%04X+%d", addr, len(data))
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.mem[addr:], data)
	return nil
}

func (c *Chip) pktStatusLocked() uint8 {
	status := c.mem[registers.RegPKTSTATUS] & registers.PktStatusCRCOK
	if !c.busy {
		status |= registers.PktStatusCCA
	}
	if c.sfd || c.state == registers.StateTX {
		status |= registers.PktStatusSFD
	}
	return status
}

func (c *Chip) strobeLocked(cmd uint8) {
	c.strobes = append(c.strobes, cmd)
	c.logger.Debug("strobe", "cmd", cmd, "state", c.state)

	switch cmd {
	case registers.StrobeSIDLE, registers.StrobeSCAL:
		c.tx = nil
		c.beginLocked(registers.StateIDLE)
	case registers.StrobeSRX:
		c.beginLocked(registers.StateRX)
	case registers.StrobeSTX:
		c.beginLocked(registers.StateTX)
	case registers.StrobeSFSTXON:
		c.beginLocked(registers.StateFSTXON)
	}
}

func (c *Chip) beginLocked(target registers.RadioState) {
	c.target = target
	c.pending = c.latency
	if c.pending == 0 && !c.stuck {
		c.enterLocked(target)
	}
}

// stepLocked advances an in-flight transition by one MARCSTATE read
func (c *Chip) stepLocked() {
	if c.pending < 0 || c.stuck {
		return
	}
	if c.pending > 0 {
		c.pending--
	}
	if c.pending == 0 {
		c.enterLocked(c.target)
	}
}

func (c *Chip) enterLocked(state registers.RadioState) {
	c.pending = -1
	c.state = state
	c.mem[registers.RegMARCSTATE] = uint8(state)
	if state == registers.StateTX {
		c.tx = c.tx[:0]
		c.mem[registers.RegTCON] |= registers.TCONRFTXRXIF
	}
}

// rfdLocked consumes a byte written to the TX FIFO and returns the frame
// when its last byte has gone out.
func (c *Chip) rfdLocked(v uint8) []byte {
	c.rfdWrites++
	if c.state != registers.StateTX {
		return nil
	}

	c.tx = append(c.tx, v)
	if len(c.tx) < int(c.tx[0])+1 {
		c.mem[registers.RegTCON] |= registers.TCONRFTXRXIF
		return nil
	}
	if c.stuckTX {
		return nil
	}

	frame := append([]byte(nil), c.tx...)
	c.sent = append(c.sent, frame)
	c.tx = nil
	c.mem[registers.RegRFIF] |= registers.RFIFDone
	c.logger.Debug("frame sent", "len", frame[0])

	switch c.mem[registers.RegMCSM1] & 0x03 {
	case 0x00:
		c.enterLocked(registers.StateIDLE)
	case 0x01:
		c.enterLocked(registers.StateFSTXON)
	case 0x03:
		c.enterLocked(registers.StateRX)
	}
	return frame
}

// Receive puts a frame on the chip's antenna. The frame is the length byte,
// the payload and the two status bytes the packet handler appends. It
// reports whether DMA channel 0 captured it.
func (c *Chip) Receive(frame []byte) bool {
	c.mu.Lock()
	fire, ok := c.receiveLocked(frame)
	c.mu.Unlock()
	if fire != nil {
		fire()
	}
	return ok
}

func (c *Chip) receiveLocked(frame []byte) (func(), bool) {
	if len(frame) == 0 || c.state != registers.StateRX || c.mem[registers.RegDMAARM]&0x01 == 0 {
		c.dropped++
		return nil, false
	}

	descAddr := int(c.mem[registers.RegDMA0CFGH])<<8 | int(c.mem[registers.RegDMA0CFGL])
	if descAddr+dma.DescriptorSize > len(c.mem) {
		c.dropped++
		return nil, false
	}
	d, err := dma.Parse(c.mem[descAddr : descAddr+dma.DescriptorSize])
	if err != nil || d.Trigger != dma.TriggerRadio {
		c.dropped++
		return nil, false
	}

	n := d.Count(frame[0])
	if n > len(frame) {
		n = len(frame)
	}
	dst := d.Dst
	for i := 0; i < n; i++ {
		c.mem[dst] = frame[i]
		switch d.DstInc {
		case dma.Inc1:
			dst++
		case dma.Inc2:
			dst += 2
		case dma.IncM1:
			dst--
		}
	}

	last := frame[len(frame)-1]
	c.mem[registers.RegPKTSTATUS] = last & registers.PktStatusCRCOK
	c.mem[registers.RegDMAARM] &^= 0x01
	c.mem[registers.RegDMAIRQ] |= 0x01
	c.mem[registers.RegRFIF] |= registers.RFIFDone

	switch (c.mem[registers.RegMCSM1] >> 2) & 0x03 {
	case 0x00:
		c.enterLocked(registers.StateIDLE)
	case 0x01:
		c.enterLocked(registers.StateFSTXON)
	case 0x02:
		c.enterLocked(registers.StateTX)
	}

	if d.IRQMask && c.mem[registers.RegIEN1]&registers.IEN1DMAIE != 0 && c.handler != nil {
		return c.handler, true
	}
	return nil, true
}

// FireDMA raises the channel 0 completion as if a frame had just landed,
// without touching the staging buffer.
func (c *Chip) FireDMA() {
	c.mu.Lock()
	c.mem[registers.RegDMAARM] &^= 0x01
	c.mem[registers.RegDMAIRQ] |= 0x01
	fn := c.handler
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SetChannelBusy drives the CCA status bit low
func (c *Chip) SetChannelBusy(busy bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = busy
}

// SetReceiving drives the sync word detected status bit
func (c *Chip) SetReceiving(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sfd = on
}

// ForceState pins the MARCSTATE read-back to state until ReleaseState
func (c *Chip) ForceState(state registers.RadioState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forced = true
	c.forcedTo = state
}

// ReleaseState ends a ForceState
func (c *Chip) ReleaseState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forced = false
}

// SetState puts the state machine directly into state
func (c *Chip) SetState(state registers.RadioState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enterLocked(state)
}

// SetStuck stops state transitions from ever completing
func (c *Chip) SetStuck(stuck bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stuck = stuck
}

// SetStuckTX keeps the transmitter from ever finishing a frame
func (c *Chip) SetStuckTX(stuck bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stuckTX = stuck
}

// State returns the current state without advancing transitions
func (c *Chip) State() registers.RadioState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DMAArmed reports whether channel 0 is armed
func (c *Chip) DMAArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem[registers.RegDMAARM]&0x01 != 0
}

// Strobes returns every strobe command written to RFST so far
func (c *Chip) Strobes() []uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint8(nil), c.strobes...)
}

// RFDWrites counts writes to the TX FIFO, including ones outside TX
func (c *Chip) RFDWrites() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rfdWrites
}

// Sent returns the frames the chip has finished transmitting
func (c *Chip) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	for i, f := range c.sent {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Dropped counts frames that arrived while the receiver was not armed
func (c *Chip) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// ResetRecorders clears the strobe log, RFD count and sent frames
func (c *Chip) ResetRecorders() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strobes = nil
	c.rfdWrites = 0
	c.sent = nil
	c.dropped = 0
}
