// Package netstack is the runtime that owns a radio driver: it powers the
// radio on at boot, polls for received frames and hands them upward, and
// serialises outgoing frames through a shared packet buffer.
package netstack

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/herlein/ccrf/pkg/rf"
)

// Radio is the driver contract the stack consumes
type Radio interface {
	Init() error
	Transmit(length int) rf.TxResult
	Read(buf []byte) int
	PendingPacket() bool
	On() error
	Off() error
	LinkQuality() rf.LinkQuality
	SetPacketSource(src rf.PacketSource)
}

// InputFunc receives each valid frame. The slice is only valid for the
// duration of the call.
type InputFunc func(frame []byte, attrs Attrs)

// Stack drives one radio
type Stack struct {
	mu    sync.Mutex
	radio Radio
	tx    PacketBuf
	rx    PacketBuf

	input  InputFunc
	link   *LinkEstimator
	poll   time.Duration
	logger *log.Logger
}

// Option configures a Stack
type Option func(*Stack)

// WithPollInterval sets how often Run checks for a pending frame
func WithPollInterval(d time.Duration) Option {
	return func(s *Stack) { s.poll = d }
}

// WithLogger replaces the default logger
func WithLogger(l *log.Logger) Option {
	return func(s *Stack) { s.logger = l }
}

// New returns a stack delivering received frames to input
func New(radio Radio, input InputFunc, opts ...Option) *Stack {
	s := &Stack{
		radio: radio,
		input: input,
		link:  NewLinkEstimator(),
		poll:  5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "stack"})
	}
	radio.SetPacketSource(&s.tx)
	return s
}

// Start initializes the radio and starts receiving
func (s *Stack) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.radio.Init(); err != nil {
		return fmt.Errorf("radio init: %w", err)
	}
	if err := s.radio.On(); err != nil {
		return fmt.Errorf("radio on: %w", err)
	}
	s.logger.Info("radio on")
	return nil
}

// Run starts the radio and polls it until ctx is done, then switches the
// radio off.
func (s *Stack) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			err := s.radio.Off()
			s.mu.Unlock()
			if err != nil {
				s.logger.Warn("radio off", "err", err)
			}
			return nil
		case <-ticker.C:
			s.Poll()
		}
	}
}

// Poll reads one pending frame, if any, and delivers it. It reports whether
// a frame was pending.
func (s *Stack) Poll() bool {
	s.mu.Lock()
	if !s.radio.PendingPacket() {
		s.mu.Unlock()
		return false
	}

	s.rx.Clear()
	n := s.radio.Read(s.rx.DataPtr())
	if n == 0 {
		s.mu.Unlock()
		return true
	}
	s.rx.SetDataLen(n)
	lq := s.radio.LinkQuality()
	s.rx.SetAttrs(Attrs{RSSI: lq.RSSI, LinkQuality: lq.LQI})
	s.link.Update(lq.RSSI)

	frame := append([]byte(nil), s.rx.Data()...)
	attrs := s.rx.Attrs()
	s.mu.Unlock()

	s.logger.Debug("input", "length", n, "rssi", attrs.RSSI, "lqi", attrs.LinkQuality)
	if s.input != nil {
		s.input(frame, attrs)
	}
	return true
}

// LinkRSSI returns the smoothed RSSI of received frames in dBm and the
// number of frames it is based on.
func (s *Stack) LinkRSSI() (int, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link.RSSI(), s.link.Frames()
}

// Send transmits payload. It returns rf.ErrCollision when the channel was
// busy; retrying is up to the caller.
func (s *Stack) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tx.CopyFrom(payload); err != nil {
		return err
	}
	result := s.radio.Transmit(s.tx.TotalLen())
	s.logger.Debug("output", "length", s.tx.TotalLen(), "result", result)
	if err := result.Err(); err != nil {
		return fmt.Errorf("send %d bytes: %w", len(payload), err)
	}
	return nil
}
