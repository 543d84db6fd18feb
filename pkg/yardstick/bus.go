package yardstick

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/herlein/ccrf/pkg/dma"
	"github.com/herlein/ccrf/pkg/registers"
)

// memory is peek/poke access to XDATA
type memory interface {
	Peek(address uint16, length uint16) ([]byte, error)
	Poke(address uint16, data []byte) error
}

// Bus presents a dongle's XDATA as a radio register bus. The DMA interrupt
// is not forwarded over USB, so PollIRQ samples DMAIRQ instead.
//
// Every access is a USB round trip. That is fine for configuration and
// reception, but streaming a frame through RFD is far slower than the
// on-air byte rate, so transmit over this bus only works when the TX FIFO
// is never starved, which in practice means short frames at low data rates.
type Bus struct {
	mu      sync.Mutex
	irqMu   sync.Mutex // serialises CheckIRQ
	mem     memory
	handler func()
	logger  *log.Logger
}

// NewBus wraps an open device
func NewBus(d *Device) *Bus {
	return &Bus{mem: d, logger: d.logger}
}

func (b *Bus) ReadRegister(addr uint16) (uint8, error) {
	data, err := b.ReadBlock(addr, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func (b *Bus) WriteRegister(addr uint16, value uint8) error {
	return b.WriteBlock(addr, []byte{value})
}

func (b *Bus) ReadBlock(addr uint16, length int) ([]byte, error) {
	if length <= 0 || length > 0xFFFF || int(addr)+length > 0x10000 {
		return nil, fmt.Errorf("read of %d bytes at 0x%04X out of range", length, addr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := b.mem.Peek(addr, uint16(length))
	if err != nil {
		return nil, err
	}
	return data[:length], nil
}

func (b *Bus) WriteBlock(addr uint16, data []byte) error {
	if len(data) == 0 || int(addr)+len(data) > 0x10000 {
		return fmt.Errorf("write of %d bytes at 0x%04X out of range", len(data), addr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mem.Poke(addr, data)
}

// SetDMAHandler installs the function PollIRQ calls on DMA completion
func (b *Bus) SetDMAHandler(fn func()) {
	b.mu.Lock()
	b.handler = fn
	b.mu.Unlock()
}

// CheckIRQ samples DMAIRQ once. If channel 0 completed it clears the flag,
// runs the handler and returns true. The handler has run by the time any
// concurrent CheckIRQ returns, so a driver checking before it re-arms never
// misses a completion the poller is delivering.
func (b *Bus) CheckIRQ() (bool, error) {
	b.irqMu.Lock()
	defer b.irqMu.Unlock()

	irq, err := b.ReadRegister(registers.RegDMAIRQ)
	if err != nil {
		return false, err
	}
	if irq&dma.IRQChannel0 == 0 {
		return false, nil
	}
	if err := b.WriteRegister(registers.RegDMAIRQ, irq&^dma.IRQChannel0); err != nil {
		return false, err
	}

	b.mu.Lock()
	fn := b.handler
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true, nil
}

// PollIRQ calls CheckIRQ every interval until ctx is done
func (b *Bus) PollIRQ(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := b.CheckIRQ(); err != nil {
				b.logger.Warn("DMAIRQ poll failed", "err", err)
			}
		}
	}
}
