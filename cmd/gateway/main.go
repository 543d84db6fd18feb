// gateway: Print every frame received over the radio
//
// Each frame goes to stdout, optionally to a serial port as one line per
// frame, and optionally to a rotating packet log. With the sim backend a
// simulated mote on the same channel says "Hello" on a timer.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/pkg/term"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/herlein/ccrf/pkg/board"
	"github.com/herlein/ccrf/pkg/config"
	"github.com/herlein/ccrf/pkg/netstack"
	"github.com/herlein/ccrf/pkg/rf"
	"github.com/herlein/ccrf/pkg/yardstick"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "YAML driver configuration")
	band := pflag.StringP("band", "b", "", "Band override (868 or 915)")
	backend := pflag.String("backend", board.KindYardstick, "Radio backend: yardstick or sim")
	device := pflag.StringP("device", "d", "", yardstick.DeviceFlagUsage())
	serialPort := pflag.StringP("serial", "s", "", "Forward frames to this serial port, e.g. /dev/ttyUSB0")
	serialSpeed := pflag.Int("serial-speed", 115200, "Serial port speed")
	packetLog := pflag.StringP("packet-log", "o", "", "Append frames to this rotating log file")
	timestampFormat := pflag.StringP("timestamp-format", "T", "%Y-%m-%d %H:%M:%S", "strftime format of frame time stamps")
	simInterval := pflag.Duration("sim-interval", 2*time.Second, "Send interval of the simulated mote")
	verbose := pflag.BoolP("verbose", "v", false, "Debug logging")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "gateway", ReportTimestamp: true})

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			logger.Fatal("configuration", "err", err)
		}
	}
	if *band != "" {
		cfg.Band = *band
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("configuration", "err", err)
	}
	logger.SetLevel(cfg.Level())
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	stamp, err := strftime.New(*timestampFormat)
	if err != nil {
		logger.Fatal("timestamp format", "format", *timestampFormat, "err", err)
	}

	out := &printer{stamp: stamp, logger: logger, sinks: []io.Writer{os.Stdout}}

	if *serialPort != "" {
		port, err := term.Open(*serialPort, term.Speed(*serialSpeed), term.RawMode)
		if err != nil {
			logger.Fatal("serial port", "port", *serialPort, "err", err)
		}
		defer port.Close()
		out.raw = append(out.raw, port)
		logger.Info("forwarding to serial", "port", *serialPort, "speed", *serialSpeed)
	}

	if *packetLog != "" {
		rotator := &lumberjack.Logger{
			Filename:   *packetLog,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		defer rotator.Close()
		out.sinks = append(out.sinks, rotator)
	}

	b, err := board.Open(*backend, yardstick.DeviceSelector(*device))
	if err != nil {
		logger.Fatal("open backend", "err", err)
	}
	defer b.Close()

	driver, err := rf.New(b.Hardware(), cfg, rf.WithLogger(logger.WithPrefix("rf")))
	if err != nil {
		logger.Fatal("driver", "err", err)
	}
	stack := netstack.New(driver, out.input,
		netstack.WithLogger(logger.WithPrefix("stack")),
		netstack.WithPollInterval(cfg.PollInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if b.Air != nil {
		if err := startMote(ctx, b, cfg, *simInterval, logger.WithPrefix("mote")); err != nil {
			logger.Fatal("simulated mote", "err", err)
		}
	}

	go func() {
		if err := b.Run(ctx, cfg.PollInterval); err != nil {
			logger.Error("interrupt poll", "err", err)
		}
	}()

	logger.Info("listening", "band", cfg.Band, "backend", b.Kind)
	if err := stack.Run(ctx); err != nil {
		logger.Fatal("stack", "err", err)
	}
	rssi, frames := stack.LinkRSSI()
	logger.Info("stopped", "frames", frames, "rssi_avg", rssi, "stats", fmt.Sprintf("%+v", driver.Stats()))
}

// printer writes each frame as a line of text
type printer struct {
	mu     sync.Mutex
	stamp  *strftime.Strftime
	logger *log.Logger
	// sinks get a time stamped line, raw gets the payload and a newline
	sinks []io.Writer
	raw   []io.Writer
	// failed holds the writers whose failure was already logged
	failed map[io.Writer]bool
}

func (p *printer) input(frame []byte, attrs netstack.Attrs) {
	text := payloadText(frame)

	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("%s rssi=%d lqi=%d len=%d %q\n",
		p.stamp.FormatString(time.Now()), attrs.RSSI, attrs.LinkQuality, len(frame), text)
	for _, w := range p.sinks {
		_, err := io.WriteString(w, line)
		p.check(w, err)
	}
	for _, w := range p.raw {
		_, err := w.Write(append([]byte(text), '\n'))
		p.check(w, err)
	}
}

// check logs the first write error of each writer
func (p *printer) check(w io.Writer, err error) {
	if err == nil || p.failed[w] {
		return
	}
	if p.failed == nil {
		p.failed = make(map[io.Writer]bool)
	}
	p.failed[w] = true
	if p.logger != nil {
		p.logger.Warn("frame output failed, further errors suppressed", "sink", fmt.Sprintf("%T", w), "err", err)
	}
}

// payloadText returns the frame up to its first NUL
func payloadText(frame []byte) string {
	if i := bytes.IndexByte(frame, 0); i >= 0 {
		frame = frame[:i]
	}
	return string(frame)
}

// startMote runs a simulated mote that says hello every interval
func startMote(ctx context.Context, b *board.Board, cfg config.Config, interval time.Duration, logger *log.Logger) error {
	chip, err := b.Peer()
	if err != nil {
		return err
	}
	d, err := rf.New(chip, cfg, rf.WithLogger(logger.WithPrefix("rf")))
	if err != nil {
		return err
	}
	s := netstack.New(d, nil, netstack.WithLogger(logger))
	if err := s.Start(); err != nil {
		return err
	}

	go board.Ticker(ctx, interval, func() {
		if err := s.Send([]byte("Hello\x00")); err != nil {
			logger.Warn("send", "err", err)
		}
	})
	return nil
}
