// Package board wires a radio driver to the hardware it runs on: a dongle
// over USB, or simulated chips sharing one channel.
package board

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/herlein/ccrf/pkg/rf"
	"github.com/herlein/ccrf/pkg/sim"
	"github.com/herlein/ccrf/pkg/yardstick"
)

// Backend kinds
const (
	KindYardstick = "yardstick"
	KindSim       = "sim"
)

// Board is an opened radio backend
type Board struct {
	Kind string
	// Air is the simulated channel, nil on real hardware
	Air *sim.Air

	hw  rf.Hardware
	usb *gousb.Context
	dev *yardstick.Device
	bus *yardstick.Bus
}

// Open opens a backend of the given kind. The selector picks a dongle and
// is ignored by the simulator.
func Open(kind string, selector yardstick.DeviceSelector) (*Board, error) {
	switch kind {
	case KindSim:
		air := sim.NewAir()
		chip := sim.NewChip()
		air.Attach(chip)
		return &Board{Kind: kind, Air: air, hw: chip}, nil

	case KindYardstick:
		usb := gousb.NewContext()
		dev, err := yardstick.SelectDevice(usb, selector)
		if err != nil {
			usb.Close()
			return nil, err
		}
		bus := yardstick.NewBus(dev)
		return &Board{Kind: kind, hw: bus, usb: usb, dev: dev, bus: bus}, nil
	}
	return nil, fmt.Errorf("unknown backend %q (supported: %s, %s)", kind, KindYardstick, KindSim)
}

// Hardware returns the register bus the driver runs on
func (b *Board) Hardware() rf.Hardware {
	return b.hw
}

// Device returns the USB dongle, nil for the simulator
func (b *Board) Device() *yardstick.Device {
	return b.dev
}

// Peer attaches another simulated chip to the channel
func (b *Board) Peer() (*sim.Chip, error) {
	if b.Air == nil {
		return nil, fmt.Errorf("%s backend has no simulated channel", b.Kind)
	}
	chip := sim.NewChip()
	b.Air.Attach(chip)
	return chip, nil
}

// Run delivers DMA interrupts until ctx is done. Simulated chips raise
// them directly, so for them Run only waits.
func (b *Board) Run(ctx context.Context, interval time.Duration) error {
	if b.bus == nil {
		<-ctx.Done()
		return nil
	}
	return b.bus.PollIRQ(ctx, interval)
}

// Close releases the dongle
func (b *Board) Close() error {
	var err error
	if b.dev != nil {
		err = b.dev.Close()
	}
	if b.usb != nil {
		b.usb.Close()
	}
	return err
}
