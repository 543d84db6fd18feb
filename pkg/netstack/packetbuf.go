package netstack

import "fmt"

// Packet buffer geometry: a header area that grows down in front of the data
const (
	PacketBufSize    = 128
	PacketBufHdrSize = 48
)

// Attrs carries per-packet link information
type Attrs struct {
	RSSI        int
	LinkQuality uint8
}

// PacketBuf holds one frame being built for transmit or just received
type PacketBuf struct {
	buf     [PacketBufHdrSize + PacketBufSize]byte
	hdrLen  int
	dataLen int
	attrs   Attrs
}

// Clear empties the buffer and its attributes
func (p *PacketBuf) Clear() {
	p.hdrLen = 0
	p.dataLen = 0
	p.attrs = Attrs{}
}

// CopyFrom clears the buffer and copies data into the data area
func (p *PacketBuf) CopyFrom(data []byte) error {
	if len(data) > PacketBufSize {
		return fmt.Errorf("packet of %d bytes exceeds buffer of %d", len(data), PacketBufSize)
	}
	p.Clear()
	p.dataLen = copy(p.buf[PacketBufHdrSize:], data)
	return nil
}

// DataPtr returns the whole data area, for a receiver to fill
func (p *PacketBuf) DataPtr() []byte {
	return p.buf[PacketBufHdrSize:]
}

// SetDataLen sets how much of the data area is in use
func (p *PacketBuf) SetDataLen(n int) {
	if n < 0 {
		n = 0
	}
	if n > PacketBufSize {
		n = PacketBufSize
	}
	p.dataLen = n
}

// Data returns the data in use
func (p *PacketBuf) Data() []byte {
	return p.buf[PacketBufHdrSize : PacketBufHdrSize+p.dataLen]
}

// HdrAlloc reserves n bytes of header in front of the data and returns them
func (p *PacketBuf) HdrAlloc(n int) ([]byte, error) {
	if n < 0 || p.hdrLen+n > PacketBufHdrSize {
		return nil, fmt.Errorf("header of %d bytes does not fit", p.hdrLen+n)
	}
	p.hdrLen += n
	start := PacketBufHdrSize - p.hdrLen
	return p.buf[start : start+n], nil
}

// Header returns the frame from its first header byte to the end of data.
// This is what goes on air.
func (p *PacketBuf) Header() []byte {
	return p.buf[PacketBufHdrSize-p.hdrLen : PacketBufHdrSize+p.dataLen]
}

// TotalLen is the length of Header
func (p *PacketBuf) TotalLen() int {
	return p.hdrLen + p.dataLen
}

func (p *PacketBuf) Attrs() Attrs {
	return p.attrs
}

func (p *PacketBuf) SetAttrs(a Attrs) {
	p.attrs = a
}
