package rf

// Stats counts link layer events
type Stats struct {
	ContentionDrop uint64 `yaml:"contention_drop"`
	LLTX           uint64 `yaml:"lltx"`
	LLRX           uint64 `yaml:"llrx"`
	BadSynch       uint64 `yaml:"bad_synch"`
	TooShort       uint64 `yaml:"too_short"`
	TooLong        uint64 `yaml:"too_long"`
	BadCRC         uint64 `yaml:"bad_crc"`
	Timeouts       uint64 `yaml:"timeouts"`
}

// LinkQuality is the status the packet handler appended to the last good frame
type LinkQuality struct {
	RSSI int   // dBm
	LQI  uint8 // lower is better
}
