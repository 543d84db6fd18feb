// Package rf is a half-duplex packet driver for the CC1110 sub-GHz radio.
//
// The driver programs the radio once, keeps DMA channel 0 capturing frames
// into a staging buffer in XDATA while receiving, and streams outgoing frames
// byte by byte through the RFD FIFO. A DMA completion interrupt only raises
// a pending flag; the owner polls PendingPacket and drains the staging
// buffer with Read.
//
// Apart from DMAComplete and PendingPacket, a Driver must be used from one
// goroutine at a time.
package rf

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/herlein/ccrf/pkg/config"
	"github.com/herlein/ccrf/pkg/dma"
	"github.com/herlein/ccrf/pkg/profiles"
	"github.com/herlein/ccrf/pkg/registers"
)

// Hardware is the register file of a CC1110 plus its DMA interrupt line
type Hardware interface {
	registers.Bus
	// SetDMAHandler installs fn as the DMA completion interrupt handler
	SetDMAHandler(fn func())
}

// IRQPoller is Hardware that cannot raise the DMA interrupt by itself.
// CheckIRQ samples DMAIRQ and, on a channel 0 completion, clears it and runs
// the handler.
type IRQPoller interface {
	CheckIRQ() (bool, error)
}

// PacketSource exposes the outgoing frame, starting at its header
type PacketSource interface {
	Header() []byte
}

// Radio flags
const (
	flagOn       uint8 = 0x01
	flagWasOff   uint8 = 0x10
	flagRXActive uint8 = 0x80
)

// Driver drives one CC1110 radio
type Driver struct {
	hw      Hardware
	cfg     config.Config
	profile *profiles.Profile
	clock   Clock
	logger  *log.Logger
	source  PacketSource
	channel *dma.Channel0

	flags   uint8
	pending atomic.Bool

	stats Stats
	link  LinkQuality
	err   error
}

// Option configures a Driver
type Option func(*Driver)

// WithClock replaces the system clock
func WithClock(c Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithLogger replaces the default logger
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithPacketSource sets where Transmit takes its frame from
func WithPacketSource(src PacketSource) Option {
	return func(d *Driver) { d.source = src }
}

// WithProfile overrides the profile resolved from the config
func WithProfile(p *profiles.Profile) Option {
	return func(d *Driver) { d.profile = p }
}

// New returns a driver for hw. The radio is not touched until Init.
func New(hw Hardware, cfg config.Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid radio config: %w", err)
	}

	d := &Driver{
		hw:      hw,
		cfg:     cfg,
		channel: dma.NewChannel0(hw, cfg.DescriptorAddr),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.profile == nil {
		p, err := cfg.Profile()
		if err != nil {
			return nil, err
		}
		d.profile = p
	}
	if d.clock == nil {
		d.clock = NewSystemClock()
	}
	if d.logger == nil {
		d.logger = log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "rf",
			Level:  cfg.Level(),
		})
	}
	return d, nil
}

// SetPacketSource sets where Transmit takes its frame from
func (d *Driver) SetPacketSource(src PacketSource) {
	d.source = src
}

// Error returns the first bus error the driver could not report through a
// return value.
func (d *Driver) Error() error {
	return d.err
}

// SetError records err unless an earlier error is already recorded
func (d *Driver) SetError(err error) {
	if d.err == nil {
		d.err = err
	}
	if err != nil {
		d.logger.Error("radio bus error", "err", err)
	}
}

// Stats returns a copy of the link counters
func (d *Driver) Stats() Stats {
	return d.stats
}

// LinkQuality returns the status of the last frame Read returned
func (d *Driver) LinkQuality() LinkQuality {
	return d.link
}

// IsOn reports whether Init has programmed the radio
func (d *Driver) IsOn() bool {
	return d.flags&flagOn != 0
}

// RXActive reports whether the receive DMA channel is armed
func (d *Driver) RXActive() bool {
	return d.flags&flagRXActive != 0
}

// Profile returns the profile Init programs
func (d *Driver) Profile() *profiles.Profile {
	return d.profile
}

// Init programs the radio. It does nothing if the radio is already
// programmed, and leaves it idle: call On to start receiving.
func (d *Driver) Init() error {
	if d.flags&flagOn != 0 {
		return nil
	}

	d.logger.Debug("init", "profile", d.profile.Name, "freq", d.profile.FrequencyHz, "pa", d.profile.PATable0)

	if err := registers.WriteAllRegisters(d.hw, d.profile.ToRegisters()); err != nil {
		return fmt.Errorf("failed to program radio: %w", err)
	}

	desc := dma.RadioRX(d.cfg.StagingAddr, d.cfg.StagingSize())
	if err := d.channel.Configure(desc); err != nil {
		return err
	}
	if err := d.channel.Ack(); err != nil {
		return err
	}

	d.hw.SetDMAHandler(d.DMAComplete)
	if err := registers.SetBits(d.hw, registers.RegIEN1, registers.IEN1DMAIE); err != nil {
		return fmt.Errorf("failed to enable DMA interrupt: %w", err)
	}

	d.flags |= flagOn
	return nil
}

// On puts the radio in RX and arms the receive DMA, or leaves it for Read
// to arm if a frame is unread. It does nothing if RX is already active. A radio found in any state other than IDLE or RX is
// forced through IDLE first.
func (d *Driver) On() error {
	if d.flags&flagRXActive != 0 {
		return nil
	}
	if d.flags&flagOn == 0 {
		return ErrNotInitialized
	}

	state, err := registers.GetRadioState(d.hw)
	if err != nil {
		return fmt.Errorf("failed to read radio state: %w", err)
	}
	d.logger.Debug("on", "state", state)

	switch state {
	case registers.StateIDLE:
		if err := registers.Strobe(d.hw, registers.StrobeSRX); err != nil {
			return fmt.Errorf("failed to strobe RX: %w", err)
		}
	case registers.StateRX:
	default:
		d.logger.Warn("unexpected radio state, resetting", "state", state)
		if err := registers.Strobe(d.hw, registers.StrobeSIDLE); err != nil {
			return fmt.Errorf("failed to strobe IDLE: %w", err)
		}
		if err := d.waitState(registers.StateIDLE); err != nil {
			return err
		}
		if err := registers.Strobe(d.hw, registers.StrobeSRX); err != nil {
			return fmt.Errorf("failed to strobe RX: %w", err)
		}
	}

	if err := d.arm(); err != nil {
		return err
	}
	d.flags |= flagRXActive
	return nil
}

// arm arms the receive DMA unless the staging buffer holds an unread frame,
// in which case Read arms it. A completion not yet delivered is collected
// first: Arm clears DMAIRQ, the only trace of it on a polled bus.
func (d *Driver) arm() error {
	if err := d.collect(); err != nil {
		return err
	}
	if d.pending.Load() {
		d.logger.Debug("rx held until read")
		return nil
	}
	return d.channel.Arm()
}

// collect delivers a DMA completion that the interrupt path has not
// reported yet.
func (d *Driver) collect() error {
	if p, ok := d.hw.(IRQPoller); ok {
		if _, err := p.CheckIRQ(); err != nil {
			return fmt.Errorf("failed to check DMAIRQ: %w", err)
		}
		return nil
	}
	irq, err := d.hw.ReadRegister(registers.RegDMAIRQ)
	if err != nil {
		return fmt.Errorf("failed to read DMAIRQ: %w", err)
	}
	if irq&dma.IRQChannel0 != 0 && !d.pending.Load() {
		d.logger.Debug("collected undelivered rx completion")
		d.pending.Store(true)
	}
	return nil
}

// Off idles the radio and aborts the receive DMA. It is safe to call when
// the radio is already off.
func (d *Driver) Off() error {
	d.logger.Debug("off")

	strobeErr := registers.Strobe(d.hw, registers.StrobeSIDLE)
	d.flags &^= flagRXActive
	abortErr := d.channel.Abort()

	if strobeErr != nil {
		return fmt.Errorf("failed to strobe IDLE: %w", strobeErr)
	}
	return abortErr
}

// ChannelClear reports the live clear channel assessment. A bus error reads
// as a busy channel.
func (d *Driver) ChannelClear() bool {
	status, err := d.hw.ReadRegister(registers.RegPKTSTATUS)
	if err != nil {
		d.SetError(err)
		return false
	}
	return status&registers.PktStatusCCA != 0
}

// ReceivingPacket reports whether a sync word has been seen and the radio is
// not transmitting.
func (d *Driver) ReceivingPacket() bool {
	status, err := d.hw.ReadRegister(registers.RegPKTSTATUS)
	if err != nil {
		d.SetError(err)
		return false
	}
	if status&registers.PktStatusSFD == 0 {
		return false
	}
	state, err := registers.GetRadioState(d.hw)
	if err != nil {
		d.SetError(err)
		return false
	}
	return state != registers.StateTX
}

// waitState spins until MARCSTATE reads want or the spin timeout passes
func (d *Driver) waitState(want registers.RadioState) error {
	start := d.clock.Now()
	for {
		state, err := registers.GetRadioState(d.hw)
		if err != nil {
			return fmt.Errorf("failed to read radio state: %w", err)
		}
		if state == want {
			return nil
		}
		if d.clock.Now()-start > d.cfg.SpinTimeout {
			return fmt.Errorf("waiting for %s, radio in %s: %w", want, state, ErrTimeout)
		}
	}
}

// waitBits spins until any of mask is set in the register at addr
func (d *Driver) waitBits(addr uint16, mask uint8) error {
	start := d.clock.Now()
	for {
		v, err := d.hw.ReadRegister(addr)
		if err != nil {
			return fmt.Errorf("failed to read 0x%04X: %w", addr, err)
		}
		if v&mask != 0 {
			return nil
		}
		if d.clock.Now()-start > d.cfg.SpinTimeout {
			return fmt.Errorf("waiting for 0x%02X in 0x%04X: %w", mask, addr, ErrTimeout)
		}
	}
}

// settle waits until d has passed since t0
func (d *Driver) settle(t0, dur time.Duration) {
	for d.clock.Now()-t0 < dur {
		// oscillator and synthesizer warm-up
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
