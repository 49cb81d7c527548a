package rdp

import (
	"log"
	"time"
)

// CheckTimeouts runs one pass of the periodic maintenance driver (§4.8,
// rdp_check_timeouts) over a single connection. Idempotent under repeat
// invocation: calling it again before the next tick simply finds nothing
// due yet. The caller is expected to invoke this for every live connection
// (Context.Conns) on an interval no larger than the smaller of
// ack_timeout_ms/packet_timeout_ms.
func (ctx *Context) CheckTimeouts(c *Conn) {
	now := c.clock.now()

	// Token-free preflight (§4.8): idle and CLOSE_WAIT-linger timeouts can
	// be decided from timestamps alone, without touching queues.
	//
	// The idle reaper only applies to a passive connection still waiting to
	// be posted to its accept channel - csp_rdp_check_timeouts's
	// "rx_socket != NULL && rx_socket != (void*)1" guard. An active
	// initiator (rx_socket always NULL) and any connection already handed
	// up via acceptCh are exempt: a healthy, send-only OPEN connection must
	// not be destroyed mid-stream just because conn_timeout_ms has elapsed
	// since open_timestamp.
	if c.passive && !c.acceptPosted && timedOut(c.openTimestamp, c.params.connTimeoutMs, now) {
		ctx.Destroy(c)
		return
	}
	if c.state == StateCloseWait && timedOut(c.openTimestamp, c.params.connTimeoutMs, now) {
		ctx.Destroy(c)
		return
	}

	if !ctx.token.acquire() {
		log.Printf("rdp: conn %d: CheckTimeouts: %v", c.id, ErrLockTimeout)
		return
	}
	defer ctx.token.release()

	ctx.retransmitPass(c, now)
	ctx.delayedAckPass(c, now)
	ctx.producerWakePass(c)

	if ctx.debug {
		ctx.dumpDebugState(c)
	}
}

// dumpDebugState logs a connection's YAML control-block snapshot once per
// maintenance pass, gated on config.Debug (§6's debug knob).
func (ctx *Context) dumpDebugState(c *Conn) {
	b, err := c.DumpState()
	if err != nil {
		log.Printf("rdp: conn %d: DumpState: %v", c.id, err)
		return
	}
	log.Printf("rdp: conn %d state:\n%s", c.id, b)
}

func timedOut(since time.Time, timeoutMs uint32, now time.Time) bool {
	if since.IsZero() {
		return false
	}
	return now.Sub(since) > time.Duration(timeoutMs)*time.Millisecond
}

// retransmitPass walks tx_queue in FIFO order (§4.8): prune entries the
// peer has already acknowledged, and retransmit any entry whose
// packet_timeout_ms has elapsed since it was last (re)sent.
func (ctx *Context) retransmitPass(c *Conn, now time.Time) {
	packetTimeout := time.Duration(c.params.packetTimeoutMs) * time.Millisecond
	var freed []*Packet
	kept := c.txQueue.entries[:0]
	for _, e := range c.txQueue.entries {
		if e.seqNr < c.sndUna {
			freed = append(freed, e.pkt)
			continue
		}
		if now.Sub(e.enqueuedAt) >= packetTimeout {
			e.pkt.hdr.ackNr = c.rcvCur
			e.enqueuedAt = now
			dup, err := ctx.pool.alloc()
			if err != nil {
				log.Printf("rdp: conn %d: retransmit skipped: %v", c.id, err)
				kept = append(kept, e)
				continue
			}
			dup.hdr = e.pkt.hdr
			if err := dup.setPayload(e.pkt.payload()); err != nil {
				log.Printf("rdp: conn %d: retransmit dup failed: %v", c.id, err)
				ctx.pool.release(dup)
			} else if err := ctx.transport.SendDirect(c, dup); err != nil {
				log.Printf("rdp: conn %d: retransmit send failed: %v", c.id, err)
				ctx.pool.release(dup)
			} else {
				ctx.pool.release(dup)
			}
		}
		kept = append(kept, e)
	}
	c.txQueue.entries = kept
	for _, p := range freed {
		ctx.pool.release(p)
	}
}

// delayedAckPass emits a bare ACK once ack_timeout_ms has elapsed with
// in-order data still unacknowledged (§4.8).
func (ctx *Context) delayedAckPass(c *Conn, now time.Time) {
	if c.rcvLsa >= c.rcvCur {
		return
	}
	ackTimeout := time.Duration(c.params.ackTimeoutMs) * time.Millisecond
	if now.Sub(c.ackTimestamp) <= ackTimeout {
		return
	}
	ctx.sendControl(c, header{ack: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, nil)
	c.rcvLsa = c.rcvCur
	c.ackTimestamp = now
}

// producerWakePass signals tx_wait once there is window credit free, so a
// blocked Send can retry (§4.8).
func (ctx *Context) producerWakePass(c *Conn) {
	if c.state != StateOpen {
		return
	}
	if uint32(c.txQueue.len()) < c.params.windowSize-1 && c.sndNxt < c.sndUna+2*c.params.windowSize {
		c.txWait.signal()
	}
}
