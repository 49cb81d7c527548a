package rdp

import "log"

// Close runs rdp_close (§4.9). Returns true once the connection has
// reached CLOSED; false if it only advanced to CLOSE_WAIT and a second
// call is required once the peer (or the maintenance driver's CLOSE_WAIT
// linger) finishes tearing it down. Actual resource release - returning
// pool buffers still held by tx_queue/rx_queue - happens in Destroy, driven
// by the connection's owner once Close reports true.
func (ctx *Context) Close(c *Conn) bool {
	if !ctx.token.acquire() {
		log.Printf("rdp: conn %d: Close: %v", c.id, ErrLockTimeout)
		return false
	}
	defer ctx.token.release()

	if c.state == StateClosed {
		log.Printf("rdp: conn %d: Close: %v", c.id, ErrClosed)
		return true
	}

	if c.state != StateCloseWait {
		ctx.sendControl(c, header{rst: true, ack: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, nil)
		c.state = StateCloseWait
		c.openTimestamp = c.clock.now()
		return false
	}

	c.state = StateClosed
	return true
}

// Destroy frees every buffer still held by a CLOSED connection's queues
// and retires it from the context (§5 "freeing is idempotent per buffer").
// Safe to call more than once.
func (ctx *Context) Destroy(c *Conn) {
	if !ctx.token.acquire() {
		log.Printf("rdp: conn %d: Destroy: %v", c.id, ErrLockTimeout)
		return
	}
	for _, p := range c.txQueue.drain() {
		ctx.pool.release(p)
	}
	for _, p := range c.rxQueue.drainAll() {
		ctx.pool.release(p)
	}
	ctx.token.release()
	ctx.Forget(c)
}
