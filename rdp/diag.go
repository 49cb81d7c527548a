package rdp

import (
	"gopkg.in/yaml.v3"
)

// connState is the YAML-serializable snapshot of a connection's RDP
// sub-record, used by DumpState for test assertions and maintenance-driver
// debug logging. A second, independent YAML major version from the config
// package's v2 - kept distinct per SPEC_FULL.md's dependency disposition,
// since the teacher's go.mod requires both directly.
type connState struct {
	State           string `yaml:"state"`
	SndIss          uint32 `yaml:"snd_iss"`
	SndNxt          uint32 `yaml:"snd_nxt"`
	SndUna          uint32 `yaml:"snd_una"`
	RcvIrs          uint32 `yaml:"rcv_irs"`
	RcvCur          uint32 `yaml:"rcv_cur"`
	RcvLsa          uint32 `yaml:"rcv_lsa"`
	WindowSize      uint32 `yaml:"window_size"`
	TxQueueLen      int    `yaml:"tx_queue_len"`
	RxQueueLen      int    `yaml:"rx_queue_len"`
	PacketTimeoutMs uint32 `yaml:"packet_timeout_ms"`
	AckTimeoutMs    uint32 `yaml:"ack_timeout_ms"`
}

// DumpState renders the connection's current control block as YAML, token
// held by the caller (it is read-only but must observe a consistent
// snapshot, so callers should hold the token the same way any other
// inspection of Conn fields would).
func (c *Conn) DumpState() ([]byte, error) {
	return yaml.Marshal(connState{
		State:           stateName(c.state),
		SndIss:          c.sndIss,
		SndNxt:          c.sndNxt,
		SndUna:          c.sndUna,
		RcvIrs:          c.rcvIrs,
		RcvCur:          c.rcvCur,
		RcvLsa:          c.rcvLsa,
		WindowSize:      c.params.windowSize,
		TxQueueLen:      c.txQueue.len(),
		RxQueueLen:      c.rxQueue.len(),
		PacketTimeoutMs: c.params.packetTimeoutMs,
		AckTimeoutMs:    c.params.ackTimeoutMs,
	})
}
