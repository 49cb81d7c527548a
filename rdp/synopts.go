package rdp

import (
	"encoding/binary"
	"fmt"
)

// negotiatedParams is the per-connection parameter set carried by a SYN
// payload (§3.3) and copied into the connection's control block. Passive
// peers adopt the initiator's values verbatim (§4.3).
type negotiatedParams struct {
	windowSize      uint32
	connTimeoutMs   uint32
	packetTimeoutMs uint32
	delayedAcks     uint32
	ackTimeoutMs    uint32
	ackDelayCount   uint32
}

// marshal produces the fixed 24-byte SYN payload: six network-order
// 32-bit fields, in the order of negotiatedParams.
func (p negotiatedParams) marshal() []byte {
	buf := make([]byte, synPayloadLen)
	binary.BigEndian.PutUint32(buf[0:4], p.windowSize)
	binary.BigEndian.PutUint32(buf[4:8], p.connTimeoutMs)
	binary.BigEndian.PutUint32(buf[8:12], p.packetTimeoutMs)
	binary.BigEndian.PutUint32(buf[12:16], p.delayedAcks)
	binary.BigEndian.PutUint32(buf[16:20], p.ackTimeoutMs)
	binary.BigEndian.PutUint32(buf[20:24], p.ackDelayCount)
	return buf
}

// unmarshalSynPayload rejects anything that isn't exactly synPayloadLen
// bytes, per the §9 open question: SYN payload length is authoritative,
// future parameter additions need a new SYN format, not silent truncation
// or zero-extension of a differently-sized payload.
func unmarshalSynPayload(buf []byte) (negotiatedParams, error) {
	if len(buf) != synPayloadLen {
		return negotiatedParams{}, fmt.Errorf("rdp: SYN payload has unexpected length %d (want %d)", len(buf), synPayloadLen)
	}
	return negotiatedParams{
		windowSize:      binary.BigEndian.Uint32(buf[0:4]),
		connTimeoutMs:   binary.BigEndian.Uint32(buf[4:8]),
		packetTimeoutMs: binary.BigEndian.Uint32(buf[8:12]),
		delayedAcks:     binary.BigEndian.Uint32(buf[12:16]),
		ackTimeoutMs:    binary.BigEndian.Uint32(buf[16:20]),
		ackDelayCount:   binary.BigEndian.Uint32(buf[20:24]),
	}, nil
}
