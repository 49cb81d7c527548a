package rdp

import "sync"

// optionBlock is the process-wide default parameter block (§4.10) copied
// into a connection's negotiatedParams at active-connect time (§4.2).
// Passive connections instead adopt the peer's values from the SYN (§4.3),
// never this block. Mirrors the original's file-scope csp_rdp_window_size
// and friends, generalized into the explicit-context shape the §9 design
// note asks for: a field on Context rather than package globals, guarded
// by its own mutex since SetOpt can race a concurrent active connect.
type optionBlock struct {
	mu     sync.RWMutex
	params negotiatedParams
}

func newOptionBlock() *optionBlock {
	return &optionBlock{params: negotiatedParams{
		windowSize:      DefaultWindowSize,
		connTimeoutMs:   DefaultConnTimeoutMs,
		packetTimeoutMs: DefaultPacketTimeoutMs,
		delayedAcks:     boolToUint32(DefaultDelayedAcks),
		ackTimeoutMs:    DefaultAckTimeoutMs,
		ackDelayCount:   DefaultAckDelayCount,
	}}
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (o *optionBlock) snapshot() negotiatedParams {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.params
}

// setOpt updates the default block used by future active connects (§4.10).
// Applied verbatim; the only validation is the non-zero sanity check the
// spec calls for - a zero window or timeout would wedge every connection
// that adopts it.
func (o *optionBlock) setOpt(windowSize, connTimeoutMs, packetTimeoutMs, delayedAcks, ackTimeoutMs, ackDelayCount uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if windowSize != 0 {
		o.params.windowSize = windowSize
	}
	if connTimeoutMs != 0 {
		o.params.connTimeoutMs = connTimeoutMs
	}
	if packetTimeoutMs != 0 {
		o.params.packetTimeoutMs = packetTimeoutMs
	}
	o.params.delayedAcks = delayedAcks
	if ackTimeoutMs != 0 {
		o.params.ackTimeoutMs = ackTimeoutMs
	}
	if ackDelayCount != 0 {
		o.params.ackDelayCount = ackDelayCount
	}
}
