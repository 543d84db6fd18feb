package yardstick

import "time"

// USB Device Identifiers
const (
	VendorID  = 0x1D50
	ProductID = 0x605B // YardStick One

	// Other RfCat dongles built on the same CC111x core
	ProductIDDonsDongle    = 0x6048
	ProductIDChronosDongle = 0x6047
	ProductIDSRFStick      = 0xECC1
)

// USB Endpoint Configuration
const (
	EP5MaxPacketSize = 64
	EP5OutBufferSize = 516
	ResponseMarker   = 0x40 // '@' character marks start of response
)

// USB Timeouts
const (
	USBDefaultTimeout = 1000 * time.Millisecond
	USBPollTimeout    = 100 * time.Millisecond
)

// Application IDs for EP5 protocol
const (
	AppNIC    = 0x42 // Radio NIC operations
	AppSystem = 0xFF // System/administrative commands
)

// System Commands (APP_SYSTEM = 0xFF)
const (
	SysCmdPeek      = 0x80 // Read memory
	SysCmdPoke      = 0x81 // Write memory
	SysCmdPing      = 0x82 // Echo test
	SysCmdBuildType = 0x86 // Get firmware build info
	SysCmdRFMode    = 0x88 // Set radio mode
	SysCmdPartNum   = 0x8E // Get chip part number
)

// NIC Commands (APP_NIC = 0x42)
const (
	NICSetAmpMode = 0x0A // Set amplifier mode
	NICGetAmpMode = 0x0B // Get amplifier mode
)

// Amplifier Mode values
const (
	AmpModeOff = 0x00 // Amplifier disabled
	AmpModeOn  = 0x01 // Amplifier enabled
)
