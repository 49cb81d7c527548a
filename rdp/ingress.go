package rdp

import "log"

// Ingress dispatches one inbound packet to the connection's state machine
// (§4.5). It always consumes pkt - every return path releases it back to
// the pool, directly or by handing it to rx_queue for later release on
// drain.
func (ctx *Context) Ingress(c *Conn, pkt *Packet) {
	if !ctx.token.acquire() {
		log.Printf("rdp: conn %d: ingress: %v", c.id, ErrLockTimeout)
		ctx.pool.release(pkt)
		return
	}
	defer ctx.token.release()

	h := pkt.hdr

	if c.state == StateClosed {
		lazyListen(c)
	}

	if h.rst {
		ctx.ingressRst(c, h, pkt)
		return
	}

	switch c.state {
	case StateListen:
		ctx.ingressListen(c, h, pkt)
	case StateSynSent:
		ctx.ingressSynSent(c, h, pkt)
	case StateSynRcvd, StateOpen:
		ctx.ingressOpen(c, h, pkt)
	case StateCloseWait:
		ctx.ingressCloseWait(c, h, pkt)
	default:
		ctx.pool.release(pkt)
	}
}

// ingressRst implements §4.5 bullet 3: RST handling, shared across every
// state.
func (ctx *Context) ingressRst(c *Conn, h header, pkt *Packet) {
	if h.ack {
		c.sndUna = h.ackNr + 1
	}
	if c.state == StateCloseWait {
		ctx.pool.release(pkt)
		ctx.abortConnection(c)
		return
	}
	if h.seqNr == c.rcvCur+1 {
		ctx.sendControl(c, header{rst: true, ack: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, nil)
		c.state = StateCloseWait
		c.openTimestamp = c.clock.now()
		if c.acceptPosted {
			c.wake()
		}
	}
	ctx.pool.release(pkt)
}

func (ctx *Context) ingressListen(c *Conn, h header, pkt *Packet) {
	if h.ack {
		ctx.sendControl(c, header{rst: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, nil)
		ctx.pool.release(pkt)
		ctx.abortConnection(c)
		return
	}
	if h.syn {
		params, err := unmarshalSynPayload(pkt.payload())
		if err != nil {
			log.Printf("rdp: conn %d: bad SYN payload: %v", c.id, err)
			ctx.pool.release(pkt)
			return
		}
		c.params = params
		c.rxQueue.resize(params.windowSize)
		c.rcvCur = h.seqNr
		c.rcvIrs = h.seqNr
		if params.delayedAcks != 0 {
			c.rcvLsa = h.seqNr
		}
		c.state = StateSynRcvd
		c.openTimestamp = c.clock.now()
		emitSyn(ctx, c, c.rcvIrs, true)
		ctx.pool.release(pkt)
		return
	}
	ctx.pool.release(pkt)
	ctx.abortConnection(c)
}

func (ctx *Context) ingressSynSent(c *Conn, h header, pkt *Packet) {
	if h.syn && h.ack {
		c.rcvCur = h.seqNr
		c.rcvIrs = h.seqNr
		c.sndUna = h.ackNr + 1
		c.state = StateOpen
		c.openTimestamp = c.clock.now()

		freed := c.txQueue.pruneAcked(c.sndUna)
		for _, p := range freed {
			ctx.pool.release(p)
		}

		if c.params.delayedAcks != 0 {
			c.rcvLsa = h.seqNr - 1
		} else {
			ctx.sendControl(c, header{ack: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, nil)
		}

		c.txWait.signal()
		ctx.pool.release(pkt)
		return
	}

	if h.ack {
		// Our SYN hit an already-open connection on the peer's side.
		ctx.sendControl(c, header{rst: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, nil)
		c.txWait.signal()
		ctx.pool.release(pkt)
		return
	}

	ctx.pool.release(pkt)
	ctx.abortConnection(c)
}

func (ctx *Context) ingressOpen(c *Conn, h header, pkt *Packet) {
	if h.syn || !h.ack {
		ctx.pool.release(pkt)
		ctx.abortConnection(c)
		return
	}

	windowHi := c.rcvCur + 2*c.params.windowSize
	if h.seqNr <= c.rcvCur || h.seqNr > windowHi {
		if c.state == StateSynRcvd {
			emitSyn(ctx, c, c.rcvIrs, true)
		}
		if c.state == StateOpen {
			c.sendEack(ctx)
		}
		ctx.pool.release(pkt)
		return
	}

	if h.ackNr >= c.sndNxt {
		ctx.pool.release(pkt)
		ctx.abortConnection(c)
		return
	}
	lowBound := c.sndUna - 1 - 2*c.params.windowSize
	if h.ackNr < lowBound {
		ctx.pool.release(pkt)
		ctx.abortConnection(c)
		return
	}

	if c.state == StateSynRcvd {
		if h.ackNr != c.sndIss {
			ctx.pool.release(pkt)
			ctx.abortConnection(c)
			return
		}
		c.state = StateOpen
	}

	c.sndUna = h.ackNr + 1
	freed := c.txQueue.pruneAcked(c.sndUna)
	for _, p := range freed {
		ctx.pool.release(p)
	}

	if h.eak {
		if len(pkt.payload()) > 0 {
			c.flushEack(ctx, unmarshalEackPayload(pkt.payload()))
		}
		ctx.pool.release(pkt)
		return
	}

	if len(pkt.payload()) == 0 {
		ctx.pool.release(pkt)
		return
	}

	if h.seqNr != c.rcvCur+1 {
		if !c.rxQueue.add(pkt, h.seqNr) {
			ctx.pool.release(pkt)
			return
		}
		c.sendEack(ctx)
		return
	}

	seqNr := h.seqNr
	payload := pkt.payload()
	c.deliver(payload)
	ctx.pool.release(pkt)
	c.rcvCur = seqNr

	if c.params.delayedAcks != 0 {
		if c.rcvCur > c.rcvLsa+c.params.ackDelayCount {
			ctx.sendControl(c, header{ack: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, nil)
			c.rcvLsa = c.rcvCur
			c.ackTimestamp = c.clock.now()
		}
	} else {
		ctx.sendControl(c, header{ack: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, nil)
		c.rcvLsa = c.rcvCur
		c.ackTimestamp = c.clock.now()
	}

	c.rxQueue.drain(&c.rcvCur, func(p *Packet) {
		c.deliver(p.payload())
		ctx.pool.release(p)
	})
}

func (ctx *Context) ingressCloseWait(c *Conn, h header, pkt *Packet) {
	if h.ackNr >= c.sndNxt {
		ctx.pool.release(pkt)
		return
	}
	lowBound := c.sndUna - 1 - 2*c.params.windowSize
	if h.ackNr < lowBound {
		ctx.pool.release(pkt)
		return
	}
	c.sndUna = h.ackNr + 1
	ctx.sendControl(c, header{rst: true, ack: true, seqNr: c.sndNxt, ackNr: c.rcvCur}, nil)
	ctx.pool.release(pkt)
}

// abortConnection wakes a blocked application reader with the §7 sentinel
// and retires the connection from the context's live table. Used by every
// protocol-violation path that the original expresses as "discard_close":
// notify userspace, let it drive the actual csp_close.
func (ctx *Context) abortConnection(c *Conn) {
	c.wake()
	c.state = StateClosed
	ctx.Forget(c)
}
