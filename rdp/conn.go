package rdp

import "time"

// Conn is a connection's RDP sub-record (§3.1). Every field below is only
// ever touched with the owning Context's token held - see lock.go and §4.1.
type Conn struct {
	id    uint32
	state int

	// send variables
	sndIss uint32
	sndNxt uint32
	sndUna uint32

	// receive variables
	rcvIrs uint32
	rcvCur uint32
	rcvLsa uint32

	params negotiatedParams

	ackTimestamp  time.Time
	openTimestamp time.Time

	txQueue *txQueue
	rxQueue *rxQueue
	txWait  *txWait

	clock clock

	// rxApp is the application-visible payload queue; ingress pushes
	// delivered payloads here in order. A nil slice pushed onto it is the
	// peer-initiated-reset sentinel (§7) that wakes a blocked reader.
	rxApp chan []byte

	// acceptCh receives this Conn's handle exactly once, the first time a
	// payload is delivered after the handshake completes (§4.5's "pending
	// accept socket"). acceptPosted guards the at-most-once post and mirrors
	// csp_rdp.c's rx_socket sentinel transition from "a socket's accept
	// queue" to (void*)1 once posted.
	acceptCh     chan *Conn
	acceptPosted bool

	// passive marks a connection that was lazily created out of LISTEN
	// (conn->rx_socket != NULL in the original) rather than an active
	// initiator (whose rx_socket is always NULL). Only a passive connection
	// not yet posted to its accept channel is subject to the connection-idle
	// reaper of §4.8 - mirrors csp_rdp_check_timeouts's
	// "rx_socket != NULL && rx_socket != (void*)1" guard.
	passive bool

	// accepted is true once userspace has taken the connection off
	// acceptCh.
	accepted bool
}

// newConn allocates a Conn with empty queues sized per §3.1/§6. windowSize
// governs rx_queue's 2x bound; tx_queue is always capped at the absolute
// CSPRdpMaxWindow regardless of the negotiated window.
func newConn(id uint32, windowSize uint32, clk clock) *Conn {
	rxCap := int(windowSize) * 2
	if rxCap < CSPRdpMaxWindow*2 {
		rxCap = CSPRdpMaxWindow * 2
	}
	return &Conn{
		id:       id,
		state:    StateClosed,
		txQueue:  newTxQueue(CSPRdpMaxWindow),
		rxQueue:  newRxQueue(rxCap),
		txWait:   newTxWait(),
		clock:    clk,
		rxApp:    make(chan []byte, CSPRdpMaxWindow*2),
		acceptCh: make(chan *Conn, 1),
	}
}

// deliver pushes a payload to the application RX queue and, on the first
// delivery after handshake, posts this Conn to its accept channel exactly
// once (§4.5).
func (c *Conn) deliver(payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	select {
	case c.rxApp <- cp:
	default:
		// application reader has fallen behind its own queue capacity;
		// the spec treats this as resource exhaustion (§7), recovered by
		// dropping - the sender's lack of progress drives a timeout and
		// retransmit further up, not RDP's problem to solve here.
	}
	if !c.acceptPosted {
		c.acceptPosted = true
		select {
		case c.acceptCh <- c:
		default:
		}
	}
}

// wake posts the peer-initiated-reset sentinel (nil payload) to the
// application RX queue (§7), which releases a reader blocked in Read. It
// does not signal tx_wait or the accept channel.
func (c *Conn) wake() {
	select {
	case c.rxApp <- nil:
	default:
	}
}

// inFlight reports the number of unacknowledged outbound sequence numbers,
// snd_nxt - snd_una.
func (c *Conn) inFlight() uint32 {
	return c.sndNxt - c.sndUna
}

// Accept blocks up to timeout for this connection to be posted to its own
// accept channel (the first payload delivered after handshake, §4.5), then
// marks it accepted. The maintenance driver's connection-idle timeout
// (§4.8) already stopped applying when the handle was posted (acceptPosted,
// set in deliver); Accept does not affect it. Returns false on timeout; the caller should
// keep polling rather than treat that as connection failure.
func (c *Conn) Accept(timeout time.Duration) bool {
	select {
	case <-c.acceptCh:
		c.accepted = true
		return true
	case <-time.After(timeout):
		return false
	}
}

// Read blocks up to timeout for the next in-order application payload.
// ok is false only on timeout; a nil payload with ok true is the
// peer-initiated-reset sentinel of §7, and the caller should close its
// side rather than treat it as an empty message.
func (c *Conn) Read(timeout time.Duration) (payload []byte, ok bool) {
	select {
	case p := <-c.rxApp:
		return p, true
	case <-time.After(timeout):
		return nil, false
	}
}
