package rdp

import (
	"log"
	"time"
)

// lazyListen performs the passive side's lazy CLOSED->LISTEN transition
// (§4.3): the first packet ever accepted on a freshly allocated connection
// seeds its initial sequence space before the ingress dispatcher proceeds.
// Must be called with the token held.
func lazyListen(c *Conn) {
	c.sndIss = passiveISS
	c.sndNxt = seqIncrement(c.sndIss)
	c.sndUna = c.sndIss
	c.state = StateListen
	c.passive = true
}

// emitSyn parks a SYN (or SYN+ACK, for the passive handshake reply handled
// in ingress.go) on tx_queue at seq = snd_iss, carrying the connection's
// currently negotiated parameters as the §3.3 payload.
func emitSyn(ctx *Context, c *Conn, ackNr uint32, withAck bool) bool {
	h := header{syn: true, ack: withAck, seqNr: c.sndIss, ackNr: ackNr}
	return ctx.sendTracked(c, h, c.params.marshal())
}

// ConnectActive runs the initiator's handshake (§4.2): rdp_connect_active.
// timeout bounds each tx_wait sleep; the overall attempt may block roughly
// 2x timeout across its single retry. Returns false (and leaves the
// connection in CLOSE_WAIT) if the peer never completes the handshake.
func (ctx *Context) ConnectActive(c *Conn, timeout time.Duration) bool {
	if !ctx.token.acquire() {
		log.Printf("rdp: conn %d: ConnectActive: %v", c.id, ErrLockTimeout)
		return false
	}

	if c.state == StateOpen {
		ctx.token.release()
		return false
	}

	c.params = ctx.defaults.snapshot()
	c.rxQueue.resize(c.params.windowSize)
	c.sndIss = activeISS
	c.sndNxt = seqIncrement(c.sndIss)
	c.sndUna = c.sndIss
	c.state = StateSynSent
	c.openTimestamp = c.clock.now()
	emitSyn(ctx, c, 0, false)
	ctx.token.release()

	for attempt := 0; attempt < 2; attempt++ {
		c.txWait.wait(timeout)

		if !ctx.token.acquire() {
			log.Printf("rdp: conn %d: ConnectActive: %v (reacquire)", c.id, ErrLockTimeout)
			return false
		}

		switch c.state {
		case StateOpen:
			ctx.token.release()
			return true
		case StateSynSent:
			if attempt == 0 {
				freed := c.txQueue.drain()
				for _, p := range freed {
					ctx.pool.release(p)
				}
				emitSyn(ctx, c, 0, false)
				ctx.token.release()
				continue
			}
			c.state = StateCloseWait
			c.openTimestamp = c.clock.now()
			ctx.token.release()
			log.Printf("rdp: conn %d: ConnectActive: %v", c.id, ErrClosed)
			return false
		default:
			ctx.token.release()
			return false
		}
	}
	return false
}
