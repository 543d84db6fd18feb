package rf

import (
	"fmt"

	"github.com/herlein/ccrf/pkg/registers"
)

// DMAComplete is the DMA completion interrupt handler. It only marks the
// staging buffer as holding an unread frame.
func (d *Driver) DMAComplete() {
	d.pending.Store(true)
}

// PendingPacket reports whether a received frame is waiting for Read
func (d *Driver) PendingPacket() bool {
	return d.pending.Load()
}

// Read copies the staged frame's payload into buf, re-arms reception and
// returns the payload length. Frames that fail validation are counted,
// dropped and reported as 0.
func (d *Driver) Read(buf []byte) int {
	if d.flags&flagOn == 0 {
		d.pending.Store(false)
		return 0
	}

	// DMA stays disarmed until rearm, so nothing lands between the ack and
	// the copy. Collecting first keeps a poller from delivering this frame
	// again after pending is cleared.
	if err := d.collect(); err != nil {
		d.SetError(err)
	}
	if err := d.channel.Ack(); err != nil {
		d.SetError(err)
	}
	d.pending.Store(false)
	defer d.rearm()

	staged, err := d.hw.ReadBlock(d.cfg.StagingAddr, d.cfg.StagingSize())
	if err != nil {
		d.SetError(fmt.Errorf("failed to read staging buffer: %w", err))
		return 0
	}

	n, err := d.validate(staged, len(buf))
	if err != nil {
		d.logger.Debug("rx dropped", "err", err, "length", staged[0])
		return 0
	}

	copy(buf, staged[1:1+n])

	rssi, status := staged[n+1], staged[n+2]
	d.link = LinkQuality{
		RSSI: rssiDBm(rssi),
		LQI:  status & registers.StatusLQIMask,
	}
	d.stats.LLRX++
	d.logger.Debug("rx", "length", n, "rssi", d.link.RSSI, "lqi", d.link.LQI)
	return n
}

// rssiDBm converts the appended RSSI byte, a two's complement value in
// half dB steps, to dBm. Odd raw values round down.
func rssiDBm(raw uint8) int {
	return int(int8(raw))>>1 - registers.RSSIOffset
}

// validate checks the staged length byte and appended CRC status
func (d *Driver) validate(staged []byte, capacity int) (int, error) {
	n := int(staged[0])
	switch {
	case n == 0:
		d.stats.TooShort++
		return 0, ErrTooShort
	case n > d.cfg.MaxPacketLen:
		d.stats.BadSynch++
		return 0, ErrBadSync
	case n > capacity:
		d.stats.TooLong++
		return 0, ErrTooLong
	case staged[n+2]&registers.StatusCRCOK == 0:
		d.stats.BadCRC++
		return 0, ErrBadCRC
	}
	return n, nil
}

// rearm arms the receive DMA for the next frame while RX is active
func (d *Driver) rearm() {
	if d.flags&flagRXActive == 0 {
		return
	}
	if err := d.channel.Arm(); err != nil {
		d.SetError(err)
	}
}
