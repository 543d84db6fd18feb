package profiles

import "github.com/herlein/ccrf/pkg/registers"

// New868 creates the 868 MHz European ISM band profile: GFSK at 38.4 kBaud,
// 20.6 kHz deviation, 30/32 sync bits, variable length packets with CRC and
// appended RSSI/LQI status.
func New868() *Profile {
	return &Profile{
		Name:         "868-gfsk-38k4",
		Description:  "868 MHz GFSK at 38383 baud, -5 dBm",
		Band:         Band868,
		CrystalHz:    CrystalHz,
		FrequencyHz:  867999939,
		Modulation:   registers.ModGFSK,
		DataRateBaud: 38383.5,
		DeviationHz:  20629.883,
		ChannelBWHz:  101562.5,
		SyncWord:     0xB547,
		SyncMode:     registers.Sync30of32,
		PktLenMode:   registers.PktLenVariable,
		PktLen:       0xFF,
		CRCEn:        true,
		AppendStatus: true,
		TXPowerDBm:   -5,
		PATable0:     0x8F,
	}
}

// New915 creates the 902-928 MHz North American ISM band profile. It differs
// from New868 only in the carrier.
func New915() *Profile {
	p := New868()
	p.Name = "915-gfsk-38k4"
	p.Description = "902 MHz GFSK at 38383 baud, -5 dBm"
	p.Band = Band915
	p.FrequencyHz = 901999969
	return p
}
