package exchange

import "time"

// SpeedTestPolicy controls the pre-contract speed test used to filter slow
// sellers before a contract is formed.
type SpeedTestPolicy struct {
	// Enabled gates the whole policy; when false sellers are invited
	// directly
	Enabled bool

	// PayloadSize is the synthetic payload size requested from each seller
	PayloadSize uint64

	// MaxPayloadSize bounds the payload this node will deliver when it is
	// the one being tested
	MaxPayloadSize uint64

	// MaxTimeToRespond is how long a seller may take to deliver the payload
	MaxTimeToRespond time.Duration

	// DisconnectIfSlow removes sellers that exceed MaxTimeToRespond, even
	// when the payload eventually arrives intact
	DisconnectIfSlow bool
}

// DefaultSpeedTestPolicy returns the stock policy.
func DefaultSpeedTestPolicy() SpeedTestPolicy {
	return SpeedTestPolicy{
		Enabled:          true,
		PayloadSize:      500000,
		MaxPayloadSize:   2000000,
		MaxTimeToRespond: 5 * time.Second,
		DisconnectIfSlow: true,
	}
}
