package rdp

// rxEntry is an out-of-order packet buffered awaiting in-order delivery
// (§3.1): seq > rcv_cur, seq <= rcv_cur + 2*window_size.
type rxEntry struct {
	seqNr uint32
	pkt   *Packet
}

// rxQueue is the reorder buffer: a de-duplicated bag keyed by sequence
// number, capacity >= 2*CSP_RDP_MAX_WINDOW (§3.1, §4.6). Implemented as a
// flat slice scanned linearly rather than indexed by a map - the window is
// small and bounded, and the O(n^2) worst case of repeated full-queue scans
// during drain is intentional (§4.6): predictability over allocating an
// index for a handful of entries.
type rxQueue struct {
	entries  []*rxEntry
	capacity int
}

func newRxQueue(capacity int) *rxQueue {
	return &rxQueue{capacity: capacity}
}

func (q *rxQueue) len() int { return len(q.entries) }

// resize raises the queue's capacity to at least 2*windowSize, once the
// connection's negotiated window_size is known (handshake completion can
// adopt a peer value different from the DefaultWindowSize a Conn was
// allocated with). Never shrinks below what newConn already established.
func (q *rxQueue) resize(windowSize uint32) {
	want := int(windowSize) * 2
	if want > q.capacity {
		q.capacity = want
	}
}

func (q *rxQueue) exists(seqNr uint32) bool {
	for _, e := range q.entries {
		if e.seqNr == seqNr {
			return true
		}
	}
	return false
}

// add is add-unless-present: returns false (and does not add) for a
// duplicate seq, or if the queue is already at capacity.
func (q *rxQueue) add(pkt *Packet, seqNr uint32) bool {
	if q.exists(seqNr) {
		return false
	}
	if len(q.entries) >= q.capacity {
		return false
	}
	q.entries = append(q.entries, &rxEntry{seqNr: seqNr, pkt: pkt})
	return true
}

// seqs returns the buffered sequence numbers, for EACK generation (§4.7).
// Order need not be sorted per §3.4; this returns insertion order.
func (q *rxQueue) seqs() []uint32 {
	seqs := make([]uint32, len(q.entries))
	for i, e := range q.entries {
		seqs[i] = e.seqNr
	}
	return seqs
}

// drain repeatedly scans for the packet with seq == rcvCur+1, delivers it
// via deliver, advances rcvCur, and restarts the scan from the top - the
// semantics the original source expresses with an explicit label-loop on
// requeue (§4.6, §9 open question: preserve the restart-on-every-delivery
// behavior, not the goto syntax that produced it).
func (q *rxQueue) drain(rcvCur *uint32, deliver func(pkt *Packet)) {
	for {
		delivered := false
		for i, e := range q.entries {
			if e.seqNr != *rcvCur+1 {
				continue
			}
			deliver(e.pkt)
			*rcvCur = e.seqNr
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			delivered = true
			break
		}
		if !delivered {
			return
		}
	}
}

// drainAll empties the queue unconditionally, returning every buffered
// packet for the caller to free (rdp_flush_all, §6).
func (q *rxQueue) drainAll() []*Packet {
	freed := make([]*Packet, len(q.entries))
	for i, e := range q.entries {
		freed[i] = e.pkt
	}
	q.entries = nil
	return freed
}
