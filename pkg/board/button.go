package board

import (
	"context"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Button is a push button on a GPIO line, active low
type Button struct {
	line *gpiocdev.Line
}

// WatchButton calls fn on every debounced press of the button wired to
// offset on chip. fn runs on the line's event goroutine.
func WatchButton(chip string, offset int, debounce time.Duration, fn func()) (*Button, error) {
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithConsumer("ccrf"),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventFallingEdge {
				fn()
			}
		}))
	if err != nil {
		return nil, err
	}
	return &Button{line: line}, nil
}

// Close releases the line
func (b *Button) Close() error {
	return b.line.Close()
}

// Ticker presses a virtual button every interval until ctx is done
func Ticker(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
