package rdp

// Sequence and ack numbers are carried on the wire as 16-bit fields (§3.2)
// but kept widened to uint32 internally so that snd_nxt/snd_una/rcv_cur and
// the window arithmetic of §4.5 can use plain arithmetic comparisons
// instead of a wrapping number line.
//
// This is the Open Question decision from spec.md §9 ("sequence-number
// wrap ... is NOT handled"): rather than implement wrap-aware comparators
// everywhere seq/ack are compared, a session is bounded to 65535 packets in
// either direction - the header codec truncates to 16 bits only at the
// wire boundary (header.go), and never wraps within that bound. See
// DESIGN.md.

// seqIncrement returns seq+1. Kept as a named helper (rather than inline
// "+1") because it is the one place that would need to change if a future
// revision lifts the non-wrapping precondition.
func seqIncrement(seq uint32) uint32 {
	return seq + 1
}
