package rf

import (
	"fmt"

	"github.com/herlein/ccrf/pkg/registers"
)

// Prepare is part of the driver contract but has nothing to do: the frame is
// streamed straight from the packet source at transmit time.
func (d *Driver) Prepare(payload []byte) int {
	return 0
}

// Transmit sends the first length bytes of the packet source's header.
func (d *Driver) Transmit(length int) TxResult {
	if d.source == nil {
		d.logger.Error("transmit without a packet source")
		return TxErr
	}
	hdr := d.source.Header()
	if length <= 0 || length > len(hdr) {
		d.logger.Error("transmit length out of range", "length", length, "available", len(hdr))
		return TxErr
	}
	return d.transmit(hdr[:length])
}

// Send transmits payload. It behaves like Transmit with payload as the
// packet source's header.
func (d *Driver) Send(payload []byte) TxResult {
	return d.transmit(payload)
}

func (d *Driver) transmit(data []byte) TxResult {
	if d.flags&flagOn == 0 {
		d.logger.Error("transmit", "err", ErrNotInitialized)
		return TxErr
	}
	if len(data) == 0 {
		d.logger.Error("empty packet")
		return TxErr
	}
	if len(data) > d.cfg.MaxPacketLen {
		d.logger.Error("packet too long", "length", len(data), "max", d.cfg.MaxPacketLen)
		return TxErr
	}

	d.logger.Debug("tx", "length", len(data), "flags", d.flags)

	if d.flags&flagRXActive == 0 {
		t0 := d.clock.Now()
		d.flags |= flagWasOff
		if err := d.On(); err != nil {
			return d.abort(fmt.Errorf("failed to power on: %w", err))
		}
		d.settle(t0, d.cfg.SettleTime)
	}

	if !d.ChannelClear() {
		d.stats.ContentionDrop++
		d.logger.Debug("tx collision")
		if err := d.restore(); err != nil {
			d.SetError(err)
		}
		return TxCollision
	}

	if err := d.stream(data); err != nil {
		return d.abort(err)
	}

	if err := d.restore(); err != nil {
		d.SetError(err)
	}
	d.stats.LLTX++
	return TxOK
}

// stream hands the frame to the transmitter, length byte first, and waits
// for the packet handler to finish it on air.
func (d *Driver) stream(data []byte) error {
	if err := d.channel.Abort(); err != nil {
		return err
	}
	d.flags &^= flagRXActive

	// A DONE left over from the last reception must not end this frame early
	if err := registers.ClearBits(d.hw, registers.RegRFIF, registers.RFIFDone); err != nil {
		return fmt.Errorf("failed to clear RFIF: %w", err)
	}

	if err := registers.Strobe(d.hw, registers.StrobeSTX); err != nil {
		return fmt.Errorf("failed to strobe TX: %w", err)
	}
	if err := d.waitState(registers.StateTX); err != nil {
		return err
	}

	if err := d.writeFIFO(uint8(len(data))); err != nil {
		return err
	}
	for _, b := range data {
		if err := d.writeFIFO(b); err != nil {
			return err
		}
	}

	return d.waitBits(registers.RegRFIF, registers.RFIFDone)
}

// writeFIFO waits for RFD to be ready, then writes one byte
func (d *Driver) writeFIFO(b uint8) error {
	if err := d.waitBits(registers.RegTCON, registers.TCONRFTXRXIF); err != nil {
		return err
	}
	if err := registers.ClearBits(d.hw, registers.RegTCON, registers.TCONRFTXRXIF); err != nil {
		return fmt.Errorf("failed to clear RFTXRXIF: %w", err)
	}
	if err := d.hw.WriteRegister(registers.RegRFD, b); err != nil {
		return fmt.Errorf("failed to write RFD: %w", err)
	}
	return nil
}

// restore returns the radio to the power state it was in before transmit:
// off if transmit had to switch it on, receiving otherwise. Reception stays
// disarmed while a frame is unread.
func (d *Driver) restore() error {
	if d.flags&flagWasOff != 0 {
		d.flags &^= flagWasOff
		return d.Off()
	}
	if d.flags&flagRXActive != 0 {
		return nil
	}
	if err := d.arm(); err != nil {
		return err
	}
	d.flags |= flagRXActive
	return nil
}

// abort recovers from a failed transmit by forcing the radio to IDLE and
// restoring the prior power state.
func (d *Driver) abort(err error) TxResult {
	result := TxErr
	if isTimeout(err) {
		d.stats.Timeouts++
		result = TxTimeout
		d.logger.Warn("transmit timed out", "err", err)
	} else {
		d.SetError(err)
	}

	if serr := registers.Strobe(d.hw, registers.StrobeSIDLE); serr != nil {
		d.SetError(serr)
	}
	d.flags &^= flagRXActive

	if d.flags&flagWasOff != 0 {
		d.flags &^= flagWasOff
		if oerr := d.Off(); oerr != nil {
			d.SetError(oerr)
		}
		return result
	}
	if oerr := d.On(); oerr != nil {
		d.logger.Warn("failed to resume receive", "err", oerr)
		if !isTimeout(oerr) {
			d.SetError(oerr)
		}
	}
	return result
}
