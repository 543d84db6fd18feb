package registers

// RegisterMap holds the CC1110 radio configuration registers
type RegisterMap struct {
	// Sync word
	SYNC1 uint8 `yaml:"sync1"` // 0xDF00
	SYNC0 uint8 `yaml:"sync0"` // 0xDF01

	// Packet control
	PKTLEN   uint8 `yaml:"pktlen"`   // 0xDF02
	PKTCTRL1 uint8 `yaml:"pktctrl1"` // 0xDF03
	PKTCTRL0 uint8 `yaml:"pktctrl0"` // 0xDF04
	ADDR     uint8 `yaml:"addr"`     // 0xDF05
	CHANNR   uint8 `yaml:"channr"`   // 0xDF06

	// Frequency synthesizer
	FSCTRL1 uint8 `yaml:"fsctrl1"` // 0xDF07
	FSCTRL0 uint8 `yaml:"fsctrl0"` // 0xDF08

	// Frequency control
	FREQ2 uint8 `yaml:"freq2"` // 0xDF09
	FREQ1 uint8 `yaml:"freq1"` // 0xDF0A
	FREQ0 uint8 `yaml:"freq0"` // 0xDF0B

	// Modem configuration
	MDMCFG4 uint8 `yaml:"mdmcfg4"` // 0xDF0C
	MDMCFG3 uint8 `yaml:"mdmcfg3"` // 0xDF0D
	MDMCFG2 uint8 `yaml:"mdmcfg2"` // 0xDF0E
	MDMCFG1 uint8 `yaml:"mdmcfg1"` // 0xDF0F
	MDMCFG0 uint8 `yaml:"mdmcfg0"` // 0xDF10
	DEVIATN uint8 `yaml:"deviatn"` // 0xDF11

	// Main radio control state machine
	MCSM2 uint8 `yaml:"mcsm2"` // 0xDF12
	MCSM1 uint8 `yaml:"mcsm1"` // 0xDF13
	MCSM0 uint8 `yaml:"mcsm0"` // 0xDF14

	FOCCFG uint8 `yaml:"foccfg"` // 0xDF15
	BSCFG  uint8 `yaml:"bscfg"`  // 0xDF16

	AGCCTRL2 uint8 `yaml:"agcctrl2"` // 0xDF17
	AGCCTRL1 uint8 `yaml:"agcctrl1"` // 0xDF18
	AGCCTRL0 uint8 `yaml:"agcctrl0"` // 0xDF19

	FREND1 uint8 `yaml:"frend1"` // 0xDF1A
	FREND0 uint8 `yaml:"frend0"` // 0xDF1B

	// Frequency synthesizer calibration
	FSCAL3 uint8 `yaml:"fscal3"` // 0xDF1C
	FSCAL2 uint8 `yaml:"fscal2"` // 0xDF1D
	FSCAL1 uint8 `yaml:"fscal1"` // 0xDF1E
	FSCAL0 uint8 `yaml:"fscal0"` // 0xDF1F

	TEST2 uint8 `yaml:"test2"` // 0xDF23
	TEST1 uint8 `yaml:"test1"` // 0xDF24
	TEST0 uint8 `yaml:"test0"` // 0xDF25

	// Power amplifier table (reversed order in memory)
	PA_TABLE [8]uint8 `yaml:"pa_table"` // 0xDF27-0xDF2E (PA_TABLE7-PA_TABLE0)

	IOCFG2 uint8 `yaml:"iocfg2"` // 0xDF2F
	IOCFG1 uint8 `yaml:"iocfg1"` // 0xDF30
	IOCFG0 uint8 `yaml:"iocfg0"` // 0xDF31

	// Read-only status registers
	PARTNUM    uint8 `yaml:"partnum"`    // 0xDF36
	VERSION    uint8 `yaml:"version"`    // 0xDF37
	FREQEST    uint8 `yaml:"freqest"`    // 0xDF38
	LQI        uint8 `yaml:"lqi"`        // 0xDF39
	RSSI       uint8 `yaml:"rssi"`       // 0xDF3A
	MARCSTATE  uint8 `yaml:"marcstate"`  // 0xDF3B
	PKTSTATUS  uint8 `yaml:"pktstatus"`  // 0xDF3C
	VCO_VC_DAC uint8 `yaml:"vco_vc_dac"` // 0xDF3D
}

// ResetDefaults returns the register values the CC1110 comes out of reset with
func ResetDefaults() RegisterMap {
	return RegisterMap{
		SYNC1:    0xD3,
		SYNC0:    0x91,
		PKTLEN:   0xFF,
		PKTCTRL1: 0x04,
		PKTCTRL0: 0x45,
		FSCTRL1:  0x0F,
		FREQ2:    0x5E,
		FREQ1:    0xC4,
		FREQ0:    0xEC,
		MDMCFG4:  0x8C,
		MDMCFG3:  0x22,
		MDMCFG2:  0x02,
		MDMCFG1:  0x22,
		MDMCFG0:  0xF8,
		DEVIATN:  0x47,
		MCSM2:    0x07,
		MCSM1:    0x30,
		MCSM0:    0x04,
		FOCCFG:   0x36,
		BSCFG:    0x6C,
		AGCCTRL2: 0x03,
		AGCCTRL1: 0x40,
		AGCCTRL0: 0x91,
		FREND1:   0x56,
		FREND0:   0x10,
		FSCAL3:   0xA9,
		FSCAL2:   0x0A,
		FSCAL1:   0x20,
		FSCAL0:   0x0D,
		TEST2:    0x88,
		TEST1:    0x31,
		TEST0:    0x0B,
	}
}

// RadioState represents the main radio control state (MARCSTATE)
type RadioState uint8

const (
	StateSLEEP        RadioState = 0x00
	StateIDLE         RadioState = 0x01
	StateVCOON_MC     RadioState = 0x03
	StateREGON_MC     RadioState = 0x04
	StateMANCAL       RadioState = 0x05
	StateVCOON        RadioState = 0x06
	StateREGON        RadioState = 0x07
	StateSTARTCAL     RadioState = 0x08
	StateBWBOOST      RadioState = 0x09
	StateFS_LOCK      RadioState = 0x0A
	StateIFADCON      RadioState = 0x0B
	StateENDCAL       RadioState = 0x0C
	StateRX           RadioState = 0x0D
	StateRX_END       RadioState = 0x0E
	StateRX_RST       RadioState = 0x0F
	StateTXRX_SWITCH  RadioState = 0x10
	StateRX_OVERFLOW  RadioState = 0x11
	StateFSTXON       RadioState = 0x12
	StateTX           RadioState = 0x13
	StateTX_END       RadioState = 0x14
	StateRXTX_SWITCH  RadioState = 0x15
	StateTX_UNDERFLOW RadioState = 0x16
)

var stateNames = map[RadioState]string{
	StateSLEEP:        "SLEEP",
	StateIDLE:         "IDLE",
	StateVCOON_MC:     "VCOON_MC",
	StateREGON_MC:     "REGON_MC",
	StateMANCAL:       "MANCAL",
	StateVCOON:        "VCOON",
	StateREGON:        "REGON",
	StateSTARTCAL:     "STARTCAL",
	StateBWBOOST:      "BWBOOST",
	StateFS_LOCK:      "FS_LOCK",
	StateIFADCON:      "IFADCON",
	StateENDCAL:       "ENDCAL",
	StateRX:           "RX",
	StateRX_END:       "RX_END",
	StateRX_RST:       "RX_RST",
	StateTXRX_SWITCH:  "TXRX_SETTLING",
	StateRX_OVERFLOW:  "RX_OVERFLOW",
	StateFSTXON:       "FSTXON",
	StateTX:           "TX",
	StateTX_END:       "TX_END",
	StateRXTX_SWITCH:  "RXTX_SETTLING",
	StateTX_UNDERFLOW: "TX_UNDERFLOW",
}

// String returns a human-readable name for the radio state
func (s RadioState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Radio register addresses (memory-mapped at 0xDF00)
const (
	RegSYNC1     = 0xDF00
	RegSYNC0     = 0xDF01
	RegPKTLEN    = 0xDF02
	RegPKTCTRL1  = 0xDF03
	RegPKTCTRL0  = 0xDF04
	RegADDR      = 0xDF05
	RegCHANNR    = 0xDF06
	RegFSCTRL1   = 0xDF07
	RegFSCTRL0   = 0xDF08
	RegFREQ2     = 0xDF09
	RegFREQ1     = 0xDF0A
	RegFREQ0     = 0xDF0B
	RegMDMCFG4   = 0xDF0C
	RegMDMCFG3   = 0xDF0D
	RegMDMCFG2   = 0xDF0E
	RegMDMCFG1   = 0xDF0F
	RegMDMCFG0   = 0xDF10
	RegDEVIATN   = 0xDF11
	RegMCSM2     = 0xDF12
	RegMCSM1     = 0xDF13
	RegMCSM0     = 0xDF14
	RegFOCCFG    = 0xDF15
	RegBSCFG     = 0xDF16
	RegAGCCTRL2  = 0xDF17
	RegAGCCTRL1  = 0xDF18
	RegAGCCTRL0  = 0xDF19
	RegFREND1    = 0xDF1A
	RegFREND0    = 0xDF1B
	RegFSCAL3    = 0xDF1C
	RegFSCAL2    = 0xDF1D
	RegFSCAL1    = 0xDF1E
	RegFSCAL0    = 0xDF1F
	RegTEST2     = 0xDF23
	RegTEST1     = 0xDF24
	RegTEST0     = 0xDF25
	RegPA_TABLE7 = 0xDF27
	RegPA_TABLE0 = 0xDF2E
	RegIOCFG2    = 0xDF2F
	RegIOCFG1    = 0xDF30
	RegIOCFG0    = 0xDF31

	RegPARTNUM    = 0xDF36
	RegVERSION    = 0xDF37
	RegFREQEST    = 0xDF38
	RegLQI        = 0xDF39
	RegRSSI       = 0xDF3A
	RegMARCSTATE  = 0xDF3B
	RegPKTSTATUS  = 0xDF3C
	RegVCO_VC_DAC = 0xDF3D
)

// SFRs used by the driver, at their XDATA mirror (0xDF00 + SFR address)
const (
	RegTCON     = 0xDF88
	RegIEN1     = 0xDFB8
	RegDMAIRQ   = 0xDFD1
	RegDMA0CFGL = 0xDFD4
	RegDMA0CFGH = 0xDFD5
	RegDMAARM   = 0xDFD6
	RegDMAREQ   = 0xDFD7
	RegRFD      = 0xDFD9
	RegRFST     = 0xDFE1
	RegRFIF     = 0xDFE9
	RegRFIM     = 0xDF91
)

// Radio strobe commands (RFST register values)
const (
	StrobeSFSTXON = 0x00 // Enable and calibrate frequency synthesizer
	StrobeSCAL    = 0x01 // Calibrate frequency synthesizer
	StrobeSRX     = 0x02 // Enable RX
	StrobeSTX     = 0x03 // Enable TX
	StrobeSIDLE   = 0x04 // Exit RX/TX, turn off frequency synthesizer
	StrobeSNOP    = 0x05 // No operation
)

// PKTSTATUS bits
const (
	PktStatusCRCOK = 0x80
	PktStatusCS    = 0x40
	PktStatusPQT   = 0x20
	PktStatusCCA   = 0x10
	PktStatusSFD   = 0x08
)

// RFIF bits
const (
	RFIFTXUNF   = 0x80
	RFIFRXOVF   = 0x40
	RFIFTimeout = 0x20
	RFIFDone    = 0x10 // packet received/transmitted
	RFIFCS      = 0x08
	RFIFPQT     = 0x04
	RFIFCCA     = 0x02
	RFIFSFD     = 0x01
)

// TCON.RFTXRXIF: RFD ready for the next byte
const TCONRFTXRXIF = 0x02

// IEN1.DMAIE: DMA interrupt enable
const IEN1DMAIE = 0x01

// DMAARM abort bit
const DMAARMAbort = 0x80

// Appended status byte layout (second byte after the payload)
const (
	StatusCRCOK   = 0x80
	StatusLQIMask = 0x7F
)

// RSSIOffset converts the appended RSSI byte to dBm at 38.4 kBaud
const RSSIOffset = 73

// Modulation formats (MDMCFG2[6:4])
const (
	Mod2FSK   = 0x00
	ModGFSK   = 0x10
	ModASKOOK = 0x30
	ModMSK    = 0x70
)

// Sync mode (MDMCFG2[2:0])
const (
	SyncNone          = 0x00
	Sync15of16        = 0x01
	Sync16of16        = 0x02
	Sync30of32        = 0x03
	SyncCarrier       = 0x04
	SyncCarrier15of16 = 0x05
	SyncCarrier16of16 = 0x06
	SyncCarrier30of32 = 0x07
)

// Packet length config (PKTCTRL0[1:0])
const (
	PktLenFixed    = 0x00
	PktLenVariable = 0x01
	PktLenInfinite = 0x02
)

// PKTCTRL0 / PKTCTRL1 bits
const (
	CRCEnabled       = 0x04 // PKTCTRL0[2]
	WhiteningEnabled = 0x40 // PKTCTRL0[6]
	AppendStatus     = 0x04 // PKTCTRL1[2]
)

// MCSM1 fields
const (
	CCAModeRSSIUnlessRX = 0x30
	RXOffStayRX         = 0x0C
	TXOffRX             = 0x03
)

// Chip part numbers (PARTNUM)
const (
	PartNumCC1110 = 0x01
	PartNumCC1111 = 0x11
	PartNumCC2510 = 0x81
	PartNumCC2511 = 0x91
)

// PartName returns the chip name for a PARTNUM value
func PartName(partNum uint8) string {
	switch partNum {
	case PartNumCC1110:
		return "CC1110"
	case PartNumCC1111:
		return "CC1111"
	case PartNumCC2510:
		return "CC2510"
	case PartNumCC2511:
		return "CC2511"
	}
	return "Unknown"
}
