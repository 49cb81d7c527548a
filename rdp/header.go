package rdp

import (
	"encoding/binary"
	"fmt"
)

// headerLen is the wire size of the RDP header appendix (§3.2): one flag
// byte plus two big-endian uint16 fields.
const headerLen = 5

// header is the in-memory, host-order form of the wire appendix in §3.2.
// seq_nr/ack_nr are kept widened to uint32 (see seq.go) once off the wire.
type header struct {
	rst, eak, ack, syn bool
	seqNr, ackNr       uint32
}

// The flag byte's bit order is a compile-time choice (§3.2 permits either
// endianness, or a one-byte-per-flag layout, as long as one is picked and
// used consistently). This implementation packs all four flags into a
// single byte using the bit positions in constants.go and always writes
// seq_nr/ack_nr in network byte order, independent of that choice.
func (h header) marshal() []byte {
	buf := make([]byte, headerLen)
	buf[0] = h.flagByte()
	binary.BigEndian.PutUint16(buf[1:3], uint16(h.seqNr))
	binary.BigEndian.PutUint16(buf[3:5], uint16(h.ackNr))
	return buf
}

func (h header) flagByte() uint8 {
	var b uint8
	if h.rst {
		b |= flagRST
	}
	if h.eak {
		b |= flagEAK
	}
	if h.ack {
		b |= flagACK
	}
	if h.syn {
		b |= flagSYN
	}
	return b
}

func unmarshalHeader(buf []byte) (header, error) {
	if len(buf) < headerLen {
		return header{}, fmt.Errorf("rdp: short header (%d < %d bytes)", len(buf), headerLen)
	}
	flags := buf[0]
	return header{
		rst:   flags&flagRST != 0,
		eak:   flags&flagEAK != 0,
		ack:   flags&flagACK != 0,
		syn:   flags&flagSYN != 0,
		seqNr: uint32(binary.BigEndian.Uint16(buf[1:3])),
		ackNr: uint32(binary.BigEndian.Uint16(buf[3:5])),
	}, nil
}
