package rdp

import (
	"log"
	"sync"

	"github.com/Clouded-Sabre/csp-rdp/config"
)

// Transport is the router's send-direct interface (§6: "Hand the original
// to the router's send-direct interface"). Out of scope for this module -
// link interfaces, routing and port demux belong to the surrounding stack;
// RDP only needs a place to hand a marshaled packet off to.
type Transport interface {
	SendDirect(c *Conn, pkt *Packet) error
}

// Context is the explicit RDP context the §9 design note asks for: the
// token, the shared buffer pool, the process-wide option defaults and the
// live connection table, threaded into every entry point instead of living
// as package globals the way the original C and the teacher's lib.Pool did.
type Context struct {
	token     *rdpToken
	pool      *bufPool
	defaults  *optionBlock
	transport Transport
	debug     bool

	mu       sync.Mutex
	conns    map[uint32]*Conn
	nextID   uint32
	connSeed clock
}

// NewContext wires a Context against the given transport and buffer-pool
// size (§6's buffer allocator contract).
func NewContext(transport Transport, poolSize int) *Context {
	return &Context{
		pool:      newBufPool("rdp: ", poolSize),
		token:     newRdpToken(),
		defaults:  newOptionBlock(),
		transport: transport,
		conns:     make(map[uint32]*Conn),
		connSeed:  realClock{},
	}
}

// NewContextFromConfig builds a Context whose defaults (§4.10) and buffer
// pool size come from a loaded config.Config (config.ReadConfig), rather
// than the package's built-in DefaultWindowSize et al.
func NewContextFromConfig(transport Transport, cfg *config.Config) *Context {
	ctx := NewContext(transport, cfg.PayloadPoolSize)
	ctx.SetOpt(
		cfg.WindowSize,
		cfg.ConnTimeoutMs,
		cfg.PacketTimeoutMs,
		boolToUint32(cfg.DelayedAcks),
		cfg.AckTimeoutMs,
		cfg.AckDelayCount,
	)
	ctx.debug = cfg.Debug
	return ctx
}

// SetOpt updates the process-wide defaults used by future active connects
// (§4.10).
func (ctx *Context) SetOpt(windowSize, connTimeoutMs, packetTimeoutMs, delayedAcks, ackTimeoutMs, ackDelayCount uint32) {
	ctx.defaults.setOpt(windowSize, connTimeoutMs, packetTimeoutMs, delayedAcks, ackTimeoutMs, ackDelayCount)
}

// Allocate creates a new, CLOSED connection ready for either ConnectActive
// or lazy-LISTEN via ingress (§4.2, §4.3, §6 rdp_allocate).
func (ctx *Context) Allocate() *Conn {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.nextID++
	id := ctx.nextID
	c := newConn(id, DefaultWindowSize, realClock{})
	ctx.conns[id] = c
	return c
}

// Forget removes a connection from the context's live table. Destroy calls
// it after freeing the connection's queued buffers; the ingress abort path
// calls it directly and does not free them.
func (ctx *Context) Forget(c *Conn) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	delete(ctx.conns, c.id)
}

// Conns returns a snapshot of the currently live connections, for the
// maintenance driver's periodic sweep (§4.8).
func (ctx *Context) Conns() []*Conn {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	out := make([]*Conn, 0, len(ctx.conns))
	for _, c := range ctx.conns {
		out = append(out, c)
	}
	return out
}

// transmit marshals and hands a packet to the transport, returning the
// pool-backed Packet for the caller to either release (fire-and-forget
// control traffic) or retain in tx_queue (data/SYN, which need retransmit
// tracking).
func (ctx *Context) transmit(c *Conn, h header, payload []byte) (*Packet, error) {
	pkt, err := ctx.pool.alloc()
	if err != nil {
		log.Printf("rdp: conn %d: %v", c.id, err)
		return nil, err
	}
	pkt.hdr = h
	if err := pkt.setPayload(payload); err != nil {
		ctx.pool.release(pkt)
		return nil, err
	}
	if err := ctx.transport.SendDirect(c, pkt); err != nil {
		log.Printf("rdp: conn %d: send-direct failed: %v", c.id, err)
		ctx.pool.release(pkt)
		return nil, err
	}
	return pkt, nil
}

// sendControl transmits a fire-and-forget control packet (bare ACK, EACK,
// RST, RST+ACK) not tracked on tx_queue, releasing its buffer immediately.
func (ctx *Context) sendControl(c *Conn, h header, payload []byte) {
	pkt, err := ctx.transmit(c, h, payload)
	if err != nil {
		return
	}
	ctx.pool.release(pkt)
}

// sendTracked transmits a packet that must survive on tx_queue until
// acknowledged (data sends, SYN, SYN+ACK - §4.2, §4.4), enqueuing a
// retransmit entry stamped with the current time on success. Nothing is
// transmitted when tx_queue is already full.
func (ctx *Context) sendTracked(c *Conn, h header, payload []byte) bool {
	if c.txQueue.len() >= c.txQueue.capacity {
		log.Printf("rdp: conn %d: tx_queue full, dropping seq %d", c.id, h.seqNr)
		return false
	}
	pkt, err := ctx.transmit(c, h, payload)
	if err != nil {
		return false
	}
	if !c.txQueue.add(&txEntry{seqNr: h.seqNr, pkt: pkt, enqueuedAt: c.clock.now()}) {
		log.Printf("rdp: conn %d: tx_queue full, dropping seq %d", c.id, h.seqNr)
		ctx.pool.release(pkt)
		return false
	}
	return true
}
