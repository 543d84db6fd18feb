package dma

import (
	"fmt"

	"github.com/herlein/ccrf/pkg/registers"
)

// IRQChannel0 is channel 0's bit in DMAARM and DMAIRQ
const IRQChannel0 = 0x01

// Channel0 drives DMA channel 0, the only channel whose descriptor address
// has its own register pair.
type Channel0 struct {
	bus  registers.Bus
	addr uint16
}

// NewChannel0 returns a handle whose descriptor lives at addr in XDATA
func NewChannel0(bus registers.Bus, addr uint16) *Channel0 {
	return &Channel0{bus: bus, addr: addr}
}

// Configure writes the descriptor and points DMA0CFG at it
func (c *Channel0) Configure(d Descriptor) error {
	b := d.Bytes()
	if err := c.bus.WriteBlock(c.addr, b[:]); err != nil {
		return fmt.Errorf("failed to write DMA descriptor: %w", err)
	}
	if err := c.bus.WriteRegister(registers.RegDMA0CFGH, uint8(c.addr>>8)); err != nil {
		return fmt.Errorf("failed to set DMA0CFGH: %w", err)
	}
	if err := c.bus.WriteRegister(registers.RegDMA0CFGL, uint8(c.addr)); err != nil {
		return fmt.Errorf("failed to set DMA0CFGL: %w", err)
	}
	return nil
}

// Arm arms channel 0 and clears its completion flag. A completion still
// flagged in DMAIRQ is lost unless it was delivered before the call.
func (c *Channel0) Arm() error {
	if err := c.Ack(); err != nil {
		return err
	}
	if err := c.bus.WriteRegister(registers.RegDMAARM, IRQChannel0); err != nil {
		return fmt.Errorf("failed to arm DMA channel 0: %w", err)
	}
	return nil
}

// Ack clears channel 0's completion flag
func (c *Channel0) Ack() error {
	if err := registers.ClearBits(c.bus, registers.RegDMAIRQ, IRQChannel0); err != nil {
		return fmt.Errorf("failed to clear DMAIRQ: %w", err)
	}
	return nil
}

// Abort disarms channel 0
func (c *Channel0) Abort() error {
	if err := c.bus.WriteRegister(registers.RegDMAARM, registers.DMAARMAbort|IRQChannel0); err != nil {
		return fmt.Errorf("failed to abort DMA channel 0: %w", err)
	}
	return nil
}

// Armed reports whether the controller still holds channel 0 armed
func (c *Channel0) Armed() (bool, error) {
	v, err := c.bus.ReadRegister(registers.RegDMAARM)
	if err != nil {
		return false, err
	}
	return v&IRQChannel0 != 0, nil
}
