package rdp

// Connection states, in the order a connection walks through them.
// Mirrors csp_rdp_states from original_source/src/transport/csp_rdp.c.
const (
	StateClosed = iota
	StateListen
	StateSynSent
	StateSynRcvd
	StateOpen
	StateCloseWait
)

var stateNames = [...]string{
	StateClosed:    "CLOSED",
	StateListen:    "LISTEN",
	StateSynSent:   "SYN_SENT",
	StateSynRcvd:   "SYN_RCVD",
	StateOpen:      "OPEN",
	StateCloseWait: "CLOSE_WAIT",
}

func stateName(s int) string {
	if s < 0 || s >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

// Header flag bits (§3.2). One bit per flag, packed into the flag byte
// ahead of seq_nr/ack_nr.
const (
	flagRST uint8 = 1 << 0
	flagEAK uint8 = 1 << 1
	flagACK uint8 = 1 << 2
	flagSYN uint8 = 1 << 3
)

// Design-value defaults (§6).
const (
	DefaultWindowSize      = 10
	DefaultConnTimeoutMs   = 10000
	DefaultPacketTimeoutMs = 1000
	DefaultDelayedAcks     = true
	DefaultAckTimeoutMs    = 500
	DefaultAckDelayCount   = 5

	// CSPRdpMaxWindow is the absolute cap used to size tx_queue; rx_queue
	// starts at twice this and grows to 2*window_size once the window is
	// negotiated. The negotiated window_size itself is not clamped: with
	// CSPRdpMaxWindow packets unacknowledged, tx_queue is full and Send
	// fails instead of waiting for window credit.
	CSPRdpMaxWindow = 5

	// synPayloadLen is the fixed, version-less wire length of the SYN
	// payload (§3.3, §9 open question: length is authoritative, not
	// silently truncated).
	synPayloadLen = 24

	// initial sequence numbers (§4.2, §4.3). Deterministic by design,
	// not randomized - no attacker model is assumed for this transport.
	activeISS  = 1000
	passiveISS = 2000

	// rdpLockTimeoutMs is the acquisition timeout for the global token (§4.1).
	rdpLockTimeoutMs = 1000
)
