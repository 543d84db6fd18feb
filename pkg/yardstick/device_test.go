package yardstick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameCommand(t *testing.T) {
	got := frameCommand(AppSystem, SysCmdPeek, []byte{0x01, 0x00, 0x3B, 0xDF})
	assert.Equal(t, []byte{0xFF, 0x80, 0x04, 0x00, 0x01, 0x00, 0x3B, 0xDF}, got)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		payload []byte
		rest    []byte
		wantErr bool
	}{
		{
			name:    "complete",
			buf:     []byte{'@', 0xFF, 0x82, 0x02, 0x00, 'h', 'i'},
			payload: []byte("hi"),
			rest:    []byte{},
		},
		{
			name:    "garbage before marker",
			buf:     []byte{0x00, 0x11, '@', 0xFF, 0x82, 0x01, 0x00, 'x', '@'},
			payload: []byte("x"),
			rest:    []byte{'@'},
		},
		{
			name:    "other command skipped",
			buf:     []byte{'@', 0x42, 0x0B, 0x01, 0x00, 0x01, '@', 0xFF, 0x82, 0x00, 0x00},
			payload: []byte{},
			rest:    []byte{},
		},
		{
			name:    "partial payload kept",
			buf:     []byte{'@', 0xFF, 0x82, 0x04, 0x00, 'a'},
			rest:    []byte{'@', 0xFF, 0x82, 0x04, 0x00, 'a'},
			wantErr: true,
		},
		{
			name:    "no marker",
			buf:     []byte{1, 2, 3},
			rest:    []byte{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, rest, err := parseResponse(tt.buf, AppSystem, SysCmdPing)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.payload, payload)
			}
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestKnownProduct(t *testing.T) {
	assert.True(t, knownProduct(ProductID))
	assert.True(t, knownProduct(ProductIDDonsDongle))
	assert.False(t, knownProduct(0x1234))
}

func TestPick(t *testing.T) {
	devices := func() []*Device {
		return []*Device{
			{Serial: "009a", Bus: 1, Address: 10},
			{Serial: "00b1", Bus: 2, Address: 5},
			{Serial: "00b1", Bus: 2, Address: 6},
		}
	}

	tests := []struct {
		selector DeviceSelector
		address  int
		wantErr  bool
	}{
		{selector: "", address: 10},
		{selector: "#1", address: 5},
		{selector: "#3", wantErr: true},
		{selector: "#x", wantErr: true},
		{selector: "2:6", address: 6},
		{selector: "3:1", wantErr: true},
		{selector: "a:1", wantErr: true},
		{selector: "009a", address: 10},
		{selector: "00b1", wantErr: true},
		{selector: "ffff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.selector), func(t *testing.T) {
			d, err := pick(devices(), tt.selector)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.address, d.Address)
		})
	}

	_, err := pick(nil, "")
	assert.Error(t, err)
}
