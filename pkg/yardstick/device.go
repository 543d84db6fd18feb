// Package yardstick talks to a CC1111 dongle running RfCat firmware over USB
// and exposes its XDATA memory, radio registers included, as a register bus.
package yardstick

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/gousb"

	"github.com/herlein/ccrf/pkg/registers"
)

// Device represents a YardStick One USB device
type Device struct {
	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface
	epIn         *gousb.InEndpoint
	epOut        *gousb.OutEndpoint
	Serial       string
	Manufacturer string
	Product      string
	Bus          int
	Address      int
	recvBuf      []byte
	recvMu       sync.Mutex
	logger       *log.Logger
}

var defaultLogger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "yardstick"})

// FindAllDevices finds all connected YardStick One devices
func FindAllDevices(context *gousb.Context) ([]*Device, error) {
	devices := []*Device{}

	usbDevices, err := context.OpenDevices(func(descriptor *gousb.DeviceDesc) bool {
		return descriptor.Vendor == gousb.ID(VendorID) && knownProduct(uint16(descriptor.Product))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for _, usbDev := range usbDevices {
		device, err := wrapDevice(usbDev)
		if err != nil {
			defaultLogger.Warn("skipping device", "err", err)
			usbDev.Close()
			continue
		}
		devices = append(devices, device)
	}

	return devices, nil
}

func knownProduct(pid uint16) bool {
	switch pid {
	case ProductID, ProductIDDonsDongle, ProductIDChronosDongle, ProductIDSRFStick:
		return true
	}
	return false
}

func wrapDevice(usbDev *gousb.Device) (*Device, error) {
	manufacturer, _ := usbDev.Manufacturer()
	product, _ := usbDev.Product()
	serial, _ := usbDev.SerialNumber()

	usbDev.SetAutoDetach(true)

	config, err := usbDev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("failed to claim interface: %w", err)
	}

	// EP5 carries the RfCat command protocol in both directions
	epIn, err := iface.InEndpoint(5)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get IN endpoint: %w", err)
	}
	epOut, err := iface.OutEndpoint(5)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get OUT endpoint: %w", err)
	}

	desc := usbDev.Desc
	device := &Device{
		usbDevice:    usbDev,
		usbConfig:    config,
		usbInterface: iface,
		epIn:         epIn,
		epOut:        epOut,
		Serial:       serial,
		Manufacturer: manufacturer,
		Product:      product,
		Bus:          desc.Bus,
		Address:      desc.Address,
		recvBuf:      make([]byte, 0, EP5OutBufferSize),
		logger:       defaultLogger.With("serial", serial),
	}

	device.drainReceiveBuffer()

	return device, nil
}

// SetLogger replaces the device's logger
func (d *Device) SetLogger(l *log.Logger) {
	d.logger = l
}

// Close idles the radio and releases the USB device
func (d *Device) Close() error {
	// Leave the radio in a known state for the next user
	if d.epOut != nil {
		d.setRadioIDLE()
	}

	if d.usbInterface != nil {
		d.usbInterface.Close()
	}
	if d.usbConfig != nil {
		d.usbConfig.Close()
	}
	if d.usbDevice != nil {
		return d.usbDevice.Close()
	}
	return nil
}

// drainReceiveBuffer discards responses left over from a previous session
func (d *Device) drainReceiveBuffer() {
	buf := make([]byte, 512)
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		n, err := d.epIn.ReadContext(ctx, buf)
		cancel()
		if err != nil || n == 0 {
			break
		}
		d.logger.Debug("drained stale data", "bytes", n)
	}
	d.recvBuf = d.recvBuf[:0]
}

// setRadioIDLE pokes SIDLE into RFST without waiting for the response
func (d *Device) setRadioIDLE() {
	payload := make([]byte, 3)
	binary.LittleEndian.PutUint16(payload[0:2], registers.RegRFST)
	payload[2] = registers.StrobeSIDLE

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.epOut.WriteContext(ctx, frameCommand(AppSystem, SysCmdPoke, payload))
}

// String returns a human-readable description of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s %s (Serial: %s)", d.Manufacturer, d.Product, d.Serial)
}

// frameCommand builds an EP5 command: app(1) + cmd(1) + length(2 LE) + payload
func frameCommand(app uint8, cmd uint8, payload []byte) []byte {
	packet := make([]byte, 4+len(payload))
	packet[0] = app
	packet[1] = cmd
	binary.LittleEndian.PutUint16(packet[2:4], uint16(len(payload)))
	copy(packet[4:], payload)
	return packet
}

// Send sends a command to the device via EP5 and waits for its response
func (d *Device) Send(app uint8, cmd uint8, payload []byte, timeout time.Duration) ([]byte, error) {
	if timeout == 0 {
		timeout = USBDefaultTimeout
	}

	packet := frameCommand(app, cmd, payload)

	writeCtx, writeCancel := context.WithTimeout(context.Background(), timeout)
	n, err := d.epOut.WriteContext(writeCtx, packet)
	writeCancel()
	if err != nil {
		if writeCtx.Err() != nil || isTransientUSBError(err) {
			return nil, fmt.Errorf("write timeout: %w", err)
		}
		return nil, fmt.Errorf("failed to write to EP5: %w", err)
	}
	if n != len(packet) {
		return nil, fmt.Errorf("short write: wrote %d of %d bytes", n, len(packet))
	}

	return d.Recv(app, cmd, timeout)
}

// Recv reads a response from the device via EP5
// Response format: '@'(1) + app(1) + cmd(1) + length(2 LE) + payload
func (d *Device) Recv(expectedApp uint8, expectedCmd uint8, timeout time.Duration) ([]byte, error) {
	d.recvMu.Lock()
	defer d.recvMu.Unlock()

	if timeout == 0 {
		timeout = USBDefaultTimeout
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 512)

	for {
		response, remaining, err := parseResponse(d.recvBuf, expectedApp, expectedCmd)
		if err == nil {
			d.recvBuf = remaining
			return response, nil
		}
		d.recvBuf = remaining

		remainingTime := time.Until(deadline)
		if remainingTime <= 0 {
			return nil, fmt.Errorf("timeout waiting for response to 0x%02X/0x%02X", expectedApp, expectedCmd)
		}

		// Short reads so the deadline is checked regularly
		readTimeout := USBPollTimeout
		if remainingTime < readTimeout {
			readTimeout = remainingTime
		}

		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		n, err := d.epIn.ReadContext(ctx, buf)
		cancel()

		if err != nil {
			if ctx.Err() != nil || isTransientUSBError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read from EP5: %w", err)
		}

		if n > 0 {
			d.recvBuf = append(d.recvBuf, buf[:n]...)
		}
	}
}

func isTransientUSBError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "cancel") ||
		strings.Contains(errStr, "context")
}

// parseResponse extracts the first complete response for app/cmd from buf.
// It returns the payload and what is left of buf; on error the remainder is
// what should be kept for the next attempt.
func parseResponse(buf []byte, expectedApp uint8, expectedCmd uint8) ([]byte, []byte, error) {
	for {
		markerIdx := -1
		for i, b := range buf {
			if b == ResponseMarker {
				markerIdx = i
				break
			}
		}
		if markerIdx == -1 {
			return nil, buf[:0], fmt.Errorf("no response marker found")
		}

		data := buf[markerIdx:]
		if len(data) < 5 {
			return nil, data, fmt.Errorf("incomplete header")
		}

		app := data[1]
		cmd := data[2]
		length := binary.LittleEndian.Uint16(data[3:5])

		totalLen := 5 + int(length)
		if len(data) < totalLen {
			return nil, data, fmt.Errorf("incomplete payload: have %d, need %d", len(data), totalLen)
		}

		if app != expectedApp || cmd != expectedCmd {
			// Someone else's response; skip past its marker and keep looking
			buf = data[1:]
			continue
		}

		payload := make([]byte, length)
		copy(payload, data[5:totalLen])
		return payload, data[totalLen:], nil
	}
}

// Ping sends a ping command and verifies the echo
func (d *Device) Ping(data []byte) error {
	response, err := d.Send(AppSystem, SysCmdPing, data, USBDefaultTimeout)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	if len(response) != len(data) {
		return fmt.Errorf("ping response length mismatch: sent %d bytes, got %d", len(data), len(response))
	}
	for i := range data {
		if response[i] != data[i] {
			return fmt.Errorf("ping response data mismatch at byte %d: sent 0x%02X, got 0x%02X", i, data[i], response[i])
		}
	}
	return nil
}

// Peek reads bytes from device memory
func (d *Device) Peek(address uint16, length uint16) ([]byte, error) {
	// Payload: bytecount(2 LE) + address(2 LE)
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], length)
	binary.LittleEndian.PutUint16(payload[2:4], address)

	response, err := d.Send(AppSystem, SysCmdPeek, payload, USBDefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("peek failed at 0x%04X: %w", address, err)
	}
	if len(response) < int(length) {
		return nil, fmt.Errorf("peek at 0x%04X returned %d of %d bytes", address, len(response), length)
	}
	return response, nil
}

// PeekByte reads a single byte from device memory
func (d *Device) PeekByte(address uint16) (uint8, error) {
	data, err := d.Peek(address, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// Poke writes bytes to device memory
func (d *Device) Poke(address uint16, data []byte) error {
	// Payload: address(2 LE) + data
	payload := make([]byte, 2+len(data))
	binary.LittleEndian.PutUint16(payload[0:2], address)
	copy(payload[2:], data)

	response, err := d.Send(AppSystem, SysCmdPoke, payload, USBDefaultTimeout)
	if err != nil {
		return fmt.Errorf("poke failed at 0x%04X: %w", address, err)
	}

	// Response holds the number of bytes not written
	if len(response) >= 2 {
		bytesLeft := binary.LittleEndian.Uint16(response[0:2])
		if bytesLeft != 0 {
			return fmt.Errorf("poke incomplete: %d bytes left", bytesLeft)
		}
	}
	return nil
}

// PokeByte writes a single byte to device memory
func (d *Device) PokeByte(address uint16, value uint8) error {
	return d.Poke(address, []byte{value})
}

// GetBuildType returns the firmware build type string
func (d *Device) GetBuildType() (string, error) {
	response, err := d.Send(AppSystem, SysCmdBuildType, nil, USBDefaultTimeout)
	if err != nil {
		return "", fmt.Errorf("failed to get build type: %w", err)
	}

	for i, b := range response {
		if b == 0 {
			return string(response[:i]), nil
		}
	}
	return string(response), nil
}

// GetPartNum returns the chip part number
func (d *Device) GetPartNum() (uint8, error) {
	response, err := d.Send(AppSystem, SysCmdPartNum, nil, USBDefaultTimeout)
	if err != nil {
		return 0, fmt.Errorf("failed to get part number: %w", err)
	}
	if len(response) < 1 {
		return 0, fmt.Errorf("empty part number response")
	}
	return response[0], nil
}

// SetRFMode asks the firmware to strobe the radio itself (RX, TX or IDLE)
func (d *Device) SetRFMode(mode uint8) error {
	_, err := d.Send(AppSystem, SysCmdRFMode, []byte{mode}, USBDefaultTimeout)
	if err != nil {
		return fmt.Errorf("failed to set RF mode: %w", err)
	}
	return nil
}

// Reset issues a USB port reset, recovering a dongle that stopped answering
func (d *Device) Reset() error {
	return d.usbDevice.Reset()
}
