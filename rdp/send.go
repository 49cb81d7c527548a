package rdp

import (
	"log"
	"time"
)

// Send runs the user-initiated send path (§4.4, rdp_send). It blocks up to
// timeout for window credit to open if the connection is currently at its
// flow-control ceiling, and reports failure (false) rather than an error
// per §7's "external caller sees a boolean result" policy - every absorbed
// error is still logged against its sentinel value at the point it happens.
func (ctx *Context) Send(c *Conn, payload []byte, timeout time.Duration) bool {
	if !ctx.token.acquire() {
		log.Printf("rdp: conn %d: Send: %v", c.id, ErrLockTimeout)
		return false
	}

	for {
		if c.state != StateOpen {
			log.Printf("rdp: conn %d: Send: %v", c.id, ErrNotOpen)
			ctx.token.release()
			return false
		}
		if c.inFlight()+1 >= c.params.windowSize {
			ctx.token.release()
			if !c.txWait.wait(timeout) {
				log.Printf("rdp: conn %d: Send: %v", c.id, ErrSendTimeout)
				return false
			}
			if !ctx.token.acquire() {
				log.Printf("rdp: conn %d: Send: %v", c.id, ErrLockTimeout)
				return false
			}
			continue
		}
		break
	}

	h := header{ack: true, seqNr: c.sndNxt, ackNr: c.rcvCur}
	ok := ctx.sendTracked(c, h, payload)
	if ok {
		c.sndNxt = seqIncrement(c.sndNxt)
	}
	ctx.token.release()
	return ok
}
