package rdp

import (
	"fmt"

	rp "github.com/Clouded-Sabre/ringpool/lib"
)

// Packet is a decoded RDP header (§3.2) plus its user-data payload, backed
// by a pool-allocated chunk (§6) rather than an ad-hoc byte slice -
// mirrors lib/packet.go's PcpPacket.chunk/GetChunk/ReturnChunk split
// between header fields and pooled storage.
type Packet struct {
	hdr   header
	chunk *rp.Element
}

// setPayload copies src into the packet's pooled buffer. A zero-length src
// is valid (pure control packets carry no payload).
func (p *Packet) setPayload(src []byte) error {
	if p.chunk == nil {
		return fmt.Errorf("rdp: packet has no pool chunk")
	}
	if len(src) == 0 {
		p.chunk.Data.(*rdpPayload).Reset()
		return nil
	}
	if err := p.chunk.Data.(*rdpPayload).Copy(src); err != nil {
		return fmt.Errorf("rdp: setPayload: %w", err)
	}
	return nil
}

// payload returns the packet's current payload bytes, or nil if the
// packet never allocated a chunk (already released, or never populated).
func (p *Packet) payload() []byte {
	if p.chunk == nil {
		return nil
	}
	return p.chunk.Data.(*rdpPayload).GetSlice()
}

// marshal produces the wire form: payload followed by the header appendix
// (§3.2 "appended after any payload"; an EACK's seq list is itself the
// payload here, so it lands "appended before the RDP header" per §3.4 for
// free, with no separate case needed).
func (p *Packet) marshal() []byte {
	payload := p.payload()
	buf := make([]byte, len(payload)+headerLen)
	copy(buf, payload)
	copy(buf[len(payload):], p.hdr.marshal())
	return buf
}

// parsePacket decodes a wire frame into a pool-backed Packet. The caller
// owns the returned Packet and must release it via bufPool.release once
// done (handed off to rx_queue, consumed by the state machine, or both in
// sequence).
func parsePacket(buf []byte, bp *bufPool) (*Packet, error) {
	if len(buf) < headerLen {
		return nil, fmt.Errorf("rdp: short packet (%d < %d bytes)", len(buf), headerLen)
	}
	payloadLen := len(buf) - headerLen
	hdr, err := unmarshalHeader(buf[payloadLen:])
	if err != nil {
		return nil, err
	}
	p, err := bp.alloc()
	if err != nil {
		return nil, err
	}
	p.hdr = hdr
	if err := p.setPayload(buf[:payloadLen]); err != nil {
		bp.release(p)
		return nil, err
	}
	return p, nil
}
