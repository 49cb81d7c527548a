package rdp

import (
	"encoding/binary"
	"time"
)

// marshalEackPayload encodes the out-of-order sequence numbers currently
// buffered in rx_queue as a sequence of network-order 16-bit values (§3.4).
// Order is whatever the reorder buffer currently holds; the wire format
// does not require sorting, only that every buffered seq appears exactly
// once.
func marshalEackPayload(seqs []uint32) []byte {
	buf := make([]byte, len(seqs)*2)
	for i, s := range seqs {
		binary.BigEndian.PutUint16(buf[i*2:i*2+2], uint16(s))
	}
	return buf
}

func unmarshalEackPayload(buf []byte) []uint32 {
	seqs := make([]uint32, len(buf)/2)
	for i := range seqs {
		seqs[i] = uint32(binary.BigEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return seqs
}

// sendEack emits an EACK listing every sequence number currently buffered
// in rx_queue (§4.7 Generate). Must be called with the token held.
func (c *Conn) sendEack(ctx *Context) {
	payload := marshalEackPayload(c.rxQueue.seqs())
	ctx.sendControl(c, header{ack: true, eak: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, payload)
}

// flushEack consumes an incoming EACK's seq list against tx_queue (§4.7
// Consume): listed seqs are selectively acknowledged and freed; entries
// the peer has clearly seen past (a higher seq is listed) are marked
// expired so the next maintenance pass retransmits them immediately.
func (c *Conn) flushEack(ctx *Context, seqs []uint32) {
	listed := make(map[uint32]bool, len(seqs))
	var maxListed uint32
	for i, s := range seqs {
		listed[s] = true
		if i == 0 || s > maxListed {
			maxListed = s
		}
	}

	freed := c.txQueue.removeMatching(listed, maxListed, len(seqs) > 0, c.clock.now().Add(-time.Duration(c.params.packetTimeoutMs)*time.Millisecond))
	for _, p := range freed {
		ctx.pool.release(p)
	}
}
