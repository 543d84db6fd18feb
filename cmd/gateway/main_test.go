package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/ccrf/pkg/netstack"
)

func TestPayloadText(t *testing.T) {
	assert.Equal(t, "Hello", payloadText([]byte("Hello\x00")))
	assert.Equal(t, "abc", payloadText([]byte("abc")))
	assert.Equal(t, "", payloadText([]byte{0, 'x'}))
}

func TestPrinter(t *testing.T) {
	stamp, err := strftime.New("T")
	require.NoError(t, err)

	var sink, raw bytes.Buffer
	p := &printer{stamp: stamp, sinks: []io.Writer{&sink}, raw: []io.Writer{&raw}}

	p.input([]byte("Hello\x00"), netstack.Attrs{RSSI: -33, LinkQuality: 42})

	assert.Equal(t, "T rssi=-33 lqi=42 len=6 \"Hello\"\n", sink.String())
	assert.Equal(t, "Hello\n", raw.String())
}

type brokenWriter struct{ writes int }

func (b *brokenWriter) Write([]byte) (int, error) {
	b.writes++
	return 0, errors.New("port closed")
}

func TestPrinterLogsFirstWriteFailure(t *testing.T) {
	stamp, err := strftime.New("T")
	require.NoError(t, err)

	var logs, sink bytes.Buffer
	port := &brokenWriter{}
	p := &printer{
		stamp:  stamp,
		logger: log.NewWithOptions(&logs, log.Options{}),
		sinks:  []io.Writer{&sink},
		raw:    []io.Writer{port},
	}

	p.input([]byte("one"), netstack.Attrs{})
	p.input([]byte("two"), netstack.Attrs{})

	assert.Equal(t, 2, port.writes, "a failing sink is still tried")
	assert.Equal(t, 1, strings.Count(logs.String(), "frame output failed"))
	assert.Contains(t, logs.String(), "port closed")
	assert.Equal(t, 2, strings.Count(sink.String(), "\n"), "other sinks keep working")
}
