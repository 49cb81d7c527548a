package rdp

import "time"

// txEntry is a retransmit-queue entry (§3.1): a full outbound packet copy
// plus the monotonic timestamp it was (re)enqueued at.
type txEntry struct {
	seqNr      uint32
	pkt        *Packet
	enqueuedAt time.Time
}

// txQueue is the bounded, ordered retransmit queue, capacity >=
// CSP_RDP_MAX_WINDOW (§3.1). It is always walked and mutated under the
// connection's RDP token, so no internal locking is needed - mirrors the
// teacher's ResendPackets, generalized from a map (keyed by seq) to an
// ordered slice so FIFO retransmit order (§4.8) and the invariant "every
// entry has seq in [snd_una, snd_nxt) after pruning" are structural rather
// than incidental.
type txQueue struct {
	entries  []*txEntry
	capacity int
}

func newTxQueue(capacity int) *txQueue {
	return &txQueue{capacity: capacity}
}

func (q *txQueue) len() int { return len(q.entries) }

// add appends a new retransmit entry. Reports false if the queue is at
// capacity (§7 resource exhaustion: recovered locally, caller drops the
// send and the peer's absence of an ack drives a timeout+retransmit or,
// for a fresh send, the caller reports failure upward).
func (q *txQueue) add(e *txEntry) bool {
	if len(q.entries) >= q.capacity {
		return false
	}
	q.entries = append(q.entries, e)
	return true
}

// pruneAcked drops every entry with seq < sndUna, returning their packets
// for the caller to return to the buffer pool. Restores the invariant
// "every tx_queue entry has seq in [snd_una, snd_nxt)".
func (q *txQueue) pruneAcked(sndUna uint32) []*Packet {
	var freed []*Packet
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.seqNr < sndUna {
			freed = append(freed, e.pkt)
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return freed
}

// removeMatching drops entries whose seq is in listed (EACK selective ack),
// and for survivors whose seq is behind some listed seq, backdates their
// timestamp so the next maintenance pass retransmits immediately (§4.7).
func (q *txQueue) removeMatching(listed map[uint32]bool, maxListed uint32, hasListed bool, expireAt time.Time) []*Packet {
	var freed []*Packet
	kept := q.entries[:0]
	for _, e := range q.entries {
		if listed[e.seqNr] {
			freed = append(freed, e.pkt)
			continue
		}
		if hasListed && e.seqNr < maxListed {
			e.enqueuedAt = expireAt
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return freed
}

// all returns the entries in FIFO order for the maintenance retransmit
// pass (§4.8). Callers must not retain the slice across a mutation.
func (q *txQueue) all() []*txEntry { return q.entries }

// drain empties the queue, returning every packet for the caller to free
// (rdp_flush_all, §6).
func (q *txQueue) drain() []*Packet {
	freed := make([]*Packet, len(q.entries))
	for i, e := range q.entries {
		freed[i] = e.pkt
	}
	q.entries = nil
	return freed
}
