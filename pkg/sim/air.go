package sim

import (
	"sync"

	"github.com/herlein/ccrf/pkg/registers"
)

// Air links chips on one channel. A frame finished by one chip's
// transmitter reaches every other attached chip with the two status bytes
// its packet handler would append.
type Air struct {
	mu    sync.Mutex
	chips []*Chip

	rssi    uint8
	lqi     uint8
	corrupt bool
}

// NewAir returns a medium that reports a strong link with a good CRC
func NewAir() *Air {
	return &Air{rssi: 0x50, lqi: 0x2A}
}

// Attach connects chips to the medium
func (a *Air) Attach(chips ...*Chip) {
	a.mu.Lock()
	a.chips = append(a.chips, chips...)
	a.mu.Unlock()

	for _, c := range chips {
		c.mu.Lock()
		c.air = a
		c.mu.Unlock()
	}
}

// SetLink sets the raw RSSI byte and LQI receivers report
func (a *Air) SetLink(rssi, lqi uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rssi = rssi
	a.lqi = lqi & registers.StatusLQIMask
}

// SetCorrupt makes receivers report a CRC failure
func (a *Air) SetCorrupt(corrupt bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.corrupt = corrupt
}

// Frame builds the bytes a receiver's DMA sees for an on-air frame
func (a *Air) Frame(onAir []byte) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	status := a.lqi
	if !a.corrupt {
		status |= registers.StatusCRCOK
	}
	frame := make([]byte, 0, len(onAir)+2)
	frame = append(frame, onAir...)
	return append(frame, a.rssi, status)
}

func (a *Air) broadcast(from *Chip, onAir []byte) {
	frame := a.Frame(onAir)

	a.mu.Lock()
	peers := make([]*Chip, 0, len(a.chips))
	for _, c := range a.chips {
		if c != from {
			peers = append(peers, c)
		}
	}
	a.mu.Unlock()

	for _, c := range peers {
		c.Receive(frame)
	}
}
