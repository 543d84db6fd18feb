// Package dma models the CC1110 DMA controller as seen through the
// XDATA-mapped SFRs: an 8-byte channel descriptor in memory, a pointer to it
// in DMA0CFGH/L, and the DMAARM/DMAIRQ bit registers.
package dma

import (
	"fmt"

	"github.com/herlein/ccrf/pkg/registers"
)

// DescriptorSize is the size of one channel configuration in XDATA
const DescriptorSize = 8

// VLEN modes (byte 4, bits 7:5)
const (
	VLenFixed = 0x00 // Use LEN for transfer count
	VLenN1    = 0x01 // First byte + 1
	VLenN     = 0x02 // First byte, including itself
	VLenN2    = 0x03 // First byte + 2
	VLenN3    = 0x04 // First byte + 3
)

// Transfer modes (byte 6, bits 6:5)
const (
	ModeSingle         = 0x00
	ModeBlock          = 0x01
	ModeRepeatedSingle = 0x02
	ModeRepeatedBlock  = 0x03
)

// Trigger sources (byte 6, bits 4:0)
const (
	TriggerNone  = 0
	TriggerRadio = 19
)

// Address increments (byte 7, bits 7:6 and 5:4)
const (
	IncNone = 0x00
	Inc1    = 0x01
	Inc2    = 0x02
	IncM1   = 0x03
)

// Priorities (byte 7, bits 1:0)
const (
	PriorityLow    = 0x00
	PriorityNormal = 0x01
	PriorityHigh   = 0x02
)

// MaxLen is the largest transfer count a descriptor can hold (13 bits)
const MaxLen = 0x1FFF

// Descriptor is one DMA channel configuration
type Descriptor struct {
	Src      uint16
	Dst      uint16
	VLen     uint8
	Len      uint16
	WordSize bool
	Mode     uint8
	Trigger  uint8
	SrcInc   uint8
	DstInc   uint8
	IRQMask  bool
	M8       bool
	Priority uint8
}

// RadioRX returns the receive descriptor for the radio FIFO: one byte per
// RADIO trigger from RFD into staging, length taken from the first byte plus
// the length byte itself and the two appended status bytes.
func RadioRX(staging uint16, maxLen int) Descriptor {
	return Descriptor{
		Src:      registers.RegRFD,
		Dst:      staging,
		VLen:     VLenN3,
		Len:      uint16(maxLen),
		Mode:     ModeSingle,
		Trigger:  TriggerRadio,
		SrcInc:   IncNone,
		DstInc:   Inc1,
		IRQMask:  true,
		Priority: PriorityHigh,
	}
}

// Bytes encodes the descriptor in the layout the DMA controller reads
func (d Descriptor) Bytes() [DescriptorSize]byte {
	var b [DescriptorSize]byte
	b[0] = byte(d.Src >> 8)
	b[1] = byte(d.Src)
	b[2] = byte(d.Dst >> 8)
	b[3] = byte(d.Dst)
	b[4] = (d.VLen&0x07)<<5 | byte(d.Len>>8)&0x1F
	b[5] = byte(d.Len)
	if d.WordSize {
		b[6] |= 0x80
	}
	b[6] |= (d.Mode&0x03)<<5 | d.Trigger&0x1F
	b[7] = (d.SrcInc&0x03)<<6 | (d.DstInc&0x03)<<4 | d.Priority&0x03
	if d.IRQMask {
		b[7] |= 0x08
	}
	if d.M8 {
		b[7] |= 0x04
	}
	return b
}

// Parse decodes a descriptor from its memory image
func Parse(b []byte) (Descriptor, error) {
	if len(b) < DescriptorSize {
		return Descriptor{}, fmt.Errorf("descriptor too short: %d bytes", len(b))
	}
	return Descriptor{
		Src:      uint16(b[0])<<8 | uint16(b[1]),
		Dst:      uint16(b[2])<<8 | uint16(b[3]),
		VLen:     b[4] >> 5,
		Len:      uint16(b[4]&0x1F)<<8 | uint16(b[5]),
		WordSize: b[6]&0x80 != 0,
		Mode:     (b[6] >> 5) & 0x03,
		Trigger:  b[6] & 0x1F,
		SrcInc:   b[7] >> 6,
		DstInc:   (b[7] >> 4) & 0x03,
		IRQMask:  b[7]&0x08 != 0,
		M8:       b[7]&0x04 != 0,
		Priority: b[7] & 0x03,
	}, nil
}

// Count returns the number of bytes to move given the first byte of the
// transfer, capped at Len.
func (d Descriptor) Count(first byte) int {
	var n int
	switch d.VLen {
	case VLenN1:
		n = int(first) + 1
	case VLenN:
		n = int(first)
	case VLenN2:
		n = int(first) + 2
	case VLenN3:
		n = int(first) + 3
	default:
		return int(d.Len)
	}
	if n > int(d.Len) {
		n = int(d.Len)
	}
	return n
}
