// mote: Send "Hello" over the radio on every button press
//
// The button is a GPIO line (active low). Without one, a timer stands in
// for it. With the sim backend a simulated gateway on the same channel
// logs what it hears.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/herlein/ccrf/pkg/board"
	"github.com/herlein/ccrf/pkg/config"
	"github.com/herlein/ccrf/pkg/netstack"
	"github.com/herlein/ccrf/pkg/rf"
	"github.com/herlein/ccrf/pkg/yardstick"
)

var message = []byte("Hello\x00")

func main() {
	configPath := pflag.StringP("config", "c", "", "YAML driver configuration")
	band := pflag.StringP("band", "b", "", "Band override (868 or 915)")
	backend := pflag.String("backend", board.KindYardstick, "Radio backend: yardstick or sim")
	device := pflag.StringP("device", "d", "", yardstick.DeviceFlagUsage())
	gpioChip := pflag.String("gpio-chip", "gpiochip0", "GPIO chip of the button")
	gpioLine := pflag.Int("gpio-line", -1, "GPIO line of the button (-1 sends on a timer)")
	interval := pflag.DurationP("interval", "i", 2*time.Second, "Send interval without a button")
	debounce := pflag.Duration("debounce", 10*time.Millisecond, "Button debounce period")
	verbose := pflag.BoolP("verbose", "v", false, "Debug logging")
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "mote", ReportTimestamp: true})

	cfg, err := loadConfig(*configPath, *band)
	if err != nil {
		logger.Fatal("configuration", "err", err)
	}
	logger.SetLevel(cfg.Level())
	if *verbose {
		logger.SetLevel(log.DebugLevel)
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
	stack := netstack.New(driver, nil,
		netstack.WithLogger(logger.WithPrefix("stack")),
		netstack.WithPollInterval(cfg.PollInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if b.Air != nil {
		if err := startListener(ctx, b, cfg, logger.WithPrefix("gateway")); err != nil {
			logger.Fatal("simulated gateway", "err", err)
		}
	}

	presses := make(chan struct{}, 1)
	press := func() {
		select {
		case presses <- struct{}{}:
		default:
		}
	}

	if *gpioLine >= 0 {
		btn, err := board.WatchButton(*gpioChip, *gpioLine, *debounce, press)
		if err != nil {
			logger.Fatal("button", "chip", *gpioChip, "line", *gpioLine, "err", err)
		}
		defer btn.Close()
		logger.Info("waiting for button", "chip", *gpioChip, "line", *gpioLine)
	} else {
		go board.Ticker(ctx, *interval, press)
		logger.Info("sending on a timer", "interval", *interval)
	}

	go func() {
		if err := b.Run(ctx, cfg.PollInterval); err != nil {
			logger.Error("interrupt poll", "err", err)
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-presses:
				send(stack, logger)
			}
		}
	}()

	if err := stack.Run(ctx); err != nil {
		logger.Fatal("stack", "err", err)
	}
	logger.Info("stopped", "stats", fmt.Sprintf("%+v", driver.Stats()))
}

func send(stack *netstack.Stack, logger *log.Logger) {
	err := stack.Send(message)
	switch {
	case err == nil:
		logger.Info("sent", "payload", string(message[:len(message)-1]))
	case errors.Is(err, rf.ErrCollision):
		logger.Warn("channel busy, dropped")
	default:
		logger.Error("send failed", "err", err)
	}
}

func loadConfig(path, band string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if band != "" {
		cfg.Band = band
	}
	return cfg, cfg.Validate()
}

// startListener runs a simulated gateway that logs every frame it hears
func startListener(ctx context.Context, b *board.Board, cfg config.Config, logger *log.Logger) error {
	chip, err := b.Peer()
	if err != nil {
		return err
	}
	d, err := rf.New(chip, cfg, rf.WithLogger(logger.WithPrefix("rf")))
	if err != nil {
		return err
	}
	s := netstack.New(d, func(frame []byte, attrs netstack.Attrs) {
		logger.Info("heard", "payload", fmt.Sprintf("%q", frame), "rssi", attrs.RSSI, "lqi", attrs.LinkQuality)
	}, netstack.WithLogger(logger), netstack.WithPollInterval(cfg.PollInterval))

	if err := s.Start(); err != nil {
		return err
	}
	go s.Run(ctx)
	return nil
}
