package rdp

import (
	"sync"
	"testing"
	"time"
)

// recordTransport delivers packets asynchronously to a fixed peer
// connection, simulating a link between two independent nodes (each with
// its own Context/token) without recursing into the sender's own locked
// call stack - a real link would never call back synchronously either.
// With no peer set it only records the headers it is handed.
type recordTransport struct {
	mu      sync.Mutex
	dstCtx  *Context
	dstConn *Conn
	drop    map[uint32]bool // seq numbers to drop exactly once
	dropped map[uint32]bool
	sent    []header
}

func (t *recordTransport) SendDirect(c *Conn, pkt *Packet) error {
	t.mu.Lock()
	t.sent = append(t.sent, pkt.hdr)
	drop := t.drop[pkt.hdr.seqNr] && !t.dropped[pkt.hdr.seqNr] && pkt.hdr.ack && !pkt.hdr.syn
	if drop {
		if t.dropped == nil {
			t.dropped = make(map[uint32]bool)
		}
		t.dropped[pkt.hdr.seqNr] = true
	}
	t.mu.Unlock()

	if drop || t.dstCtx == nil {
		return nil
	}

	buf := pkt.marshal()
	dstCtx, dstConn := t.dstCtx, t.dstConn
	go func() {
		rpkt, err := parsePacket(buf, dstCtx.pool)
		if err != nil {
			return
		}
		dstCtx.Ingress(dstConn, rpkt)
	}()
	return nil
}

func newLinkedContexts(t *testing.T) (ctxA, ctxB *Context, connA, connB *Conn, trA, trB *recordTransport) {
	t.Helper()
	trA = &recordTransport{}
	trB = &recordTransport{}
	ctxA = NewContext(trA, 64)
	ctxB = NewContext(trB, 64)
	connA = ctxA.Allocate()
	connB = ctxB.Allocate()
	trA.dstCtx, trA.dstConn = ctxB, connB
	trB.dstCtx, trB.dstConn = ctxA, connA
	return
}

func waitForState(t *testing.T, c *Conn, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.state == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("conn did not reach state %s within %s (stuck at %s)", stateName(want), timeout, stateName(c.state))
}

func TestHandshakeSuccess(t *testing.T) {
	ctxA, _, connA, connB, _, _ := newLinkedContexts(t)

	ok := ctxA.ConnectActive(connA, 2*time.Second)
	if !ok {
		t.Fatalf("ConnectActive failed")
	}
	// Delayed acks are on by default, so the initiator defers its handshake
	// ACK; one maintenance pass emits it and opens the responder.
	ctxA.CheckTimeouts(connA)
	waitForState(t, connB, StateOpen, 2*time.Second)

	if connA.state != StateOpen {
		t.Errorf("initiator state = %s, want OPEN", stateName(connA.state))
	}
	if connA.sndIss != activeISS {
		t.Errorf("initiator snd_iss = %d, want %d", connA.sndIss, activeISS)
	}
	if connB.sndIss != passiveISS {
		t.Errorf("responder snd_iss = %d, want %d", connB.sndIss, passiveISS)
	}
	if connA.sndUna != activeISS+1 || connA.sndNxt != activeISS+1 {
		t.Errorf("initiator snd_una/snd_nxt = %d/%d, want %d/%d", connA.sndUna, connA.sndNxt, activeISS+1, activeISS+1)
	}
}

func TestThreeInOrderPayloadsDeliveredAndCumulativeAcked(t *testing.T) {
	ctxA, _, connA, connB, _, _ := newLinkedContexts(t)
	connB.params.ackDelayCount = 2

	if !ctxA.ConnectActive(connA, 2*time.Second) {
		t.Fatalf("ConnectActive failed")
	}
	ctxA.CheckTimeouts(connA) // emits the initiator's deferred handshake ACK
	waitForState(t, connB, StateOpen, 2*time.Second)
	// responder adopted the SYN payload's ack_delay_count, restore the
	// lowered test value. The final check below is on rcv_cur, the value
	// the responder's cumulative ACK carries as ack_nr; the ACK packet
	// itself is not inspected.
	connB.params.ackDelayCount = 2

	for _, msg := range []string{"A", "B", "C"} {
		if !ctxA.Send(connA, []byte(msg), time.Second) {
			t.Fatalf("Send(%q) failed", msg)
		}
	}

	var got []string
	for i := 0; i < 3; i++ {
		payload, ok := connB.Read(2 * time.Second)
		if !ok {
			t.Fatalf("Read timed out waiting for payload %d", i)
		}
		got = append(got, string(payload))
	}
	want := []string{"A", "B", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivered[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if connB.rcvCur != connA.sndIss+3 {
		t.Errorf("responder rcv_cur = %d, want %d", connB.rcvCur, connA.sndIss+3)
	}
}

func TestDropOneRecoveredByRetransmit(t *testing.T) {
	ctxA, _, connA, connB, trA, _ := newLinkedContexts(t)

	if !ctxA.ConnectActive(connA, 2*time.Second) {
		t.Fatalf("ConnectActive failed")
	}
	ctxA.CheckTimeouts(connA) // emits the initiator's deferred handshake ACK
	waitForState(t, connB, StateOpen, 2*time.Second)

	// Drop the second data packet (B, seq = snd_iss+2) exactly once.
	trA.mu.Lock()
	trA.drop = map[uint32]bool{connA.sndIss + 2: true}
	trA.mu.Unlock()

	for _, msg := range []string{"A", "B", "C"} {
		if !ctxA.Send(connA, []byte(msg), time.Second) {
			t.Fatalf("Send(%q) failed", msg)
		}
	}

	// A arrives and is delivered; C arrives out of order and is buffered,
	// triggering an EACK back to the initiator.
	payload, ok := connB.Read(2 * time.Second)
	if !ok || string(payload) != "A" {
		t.Fatalf("expected to receive A first, got %q ok=%v", payload, ok)
	}

	deadline := time.Now().Add(2 * time.Second)
	for connB.rxQueue.len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if connB.rxQueue.len() != 1 {
		t.Fatalf("expected C buffered in rx_queue, len=%d", connB.rxQueue.len())
	}

	// No real packet_timeout has elapsed, so backdate every tx_queue entry
	// by twice the configured packet_timeout_ms and run CheckTimeouts: the
	// retransmit pass then finds them all already expired.
	connA.ackTimestamp = connA.clock.now()
	for _, e := range connA.txQueue.all() {
		e.enqueuedAt = e.enqueuedAt.Add(-2 * time.Duration(connA.params.packetTimeoutMs) * time.Millisecond)
	}
	ctxA.CheckTimeouts(connA)

	deadline = time.Now().Add(2 * time.Second)
	for connB.rcvCur != connA.sndIss+3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if connB.rcvCur != connA.sndIss+3 {
		t.Fatalf("responder rcv_cur = %d, want %d after recovery", connB.rcvCur, connA.sndIss+3)
	}
	if connB.rxQueue.len() != 0 {
		t.Errorf("rx_queue should have drained, len=%d", connB.rxQueue.len())
	}
}

func TestHalfOpenRstThenRetry(t *testing.T) {
	// Drive the initiator's SYN_SENT branch directly with a bare ACK
	// (§8 scenario 4): "our SYN hit an already-open connection", rather
	// than modeling what peer state would produce such a reply - the
	// ingress dispatcher's reaction is the thing under test.
	tr := &recordTransport{}
	ctx := NewContext(tr, 16)
	conn := ctx.Allocate()
	conn.state = StateSynSent
	conn.sndIss = activeISS
	conn.sndNxt = activeISS + 1
	conn.sndUna = activeISS

	bareAck, err := parsePacket(header{ack: true, seqNr: 42, ackNr: activeISS}.marshal(), ctx.pool)
	if err != nil {
		t.Fatalf("parsePacket: %v", err)
	}
	ctx.Ingress(conn, bareAck)

	foundRst := false
	for _, h := range tr.sent {
		if h.rst && !h.ack {
			foundRst = true
		}
	}
	if !foundRst {
		t.Fatalf("expected a bare RST in response to the half-open ACK, sent=%+v", tr.sent)
	}

	// A genuine handshake from CLOSED on a fresh linked pair then succeeds
	// normally. The retry is not made on the connection above, which has
	// no peer to answer it.
	ctxA, _, connA, connB, _, _ := newLinkedContexts(t)
	if !ctxA.ConnectActive(connA, 2*time.Second) {
		t.Fatalf("ConnectActive after half-open detection failed")
	}
	ctxA.CheckTimeouts(connA) // emits the initiator's deferred handshake ACK
	waitForState(t, connB, StateOpen, 2*time.Second)
}

func TestGracefulClose(t *testing.T) {
	ctxA, ctxB, connA, connB, _, _ := newLinkedContexts(t)

	if !ctxA.ConnectActive(connA, 2*time.Second) {
		t.Fatalf("ConnectActive failed")
	}
	ctxA.CheckTimeouts(connA) // emits the initiator's deferred handshake ACK
	waitForState(t, connB, StateOpen, 2*time.Second)

	if done := ctxA.Close(connA); done {
		t.Fatalf("first Close should only reach CLOSE_WAIT")
	}
	if connA.state != StateCloseWait {
		t.Fatalf("initiator state = %s, want CLOSE_WAIT", stateName(connA.state))
	}

	waitForState(t, connB, StateCloseWait, 2*time.Second)

	if done := ctxA.Close(connA); !done {
		t.Fatalf("second Close should report CLOSED")
	}
	_ = ctxB
}

func TestSendBlocksOnWindowCreditAndTimesOut(t *testing.T) {
	ctxA, _, connA, _, _, _ := newLinkedContexts(t)
	connA.state = StateOpen
	connA.params = negotiatedParams{windowSize: 2, packetTimeoutMs: 1000, connTimeoutMs: 10000, ackTimeoutMs: 500, ackDelayCount: 5}
	connA.sndIss = 1000
	connA.sndNxt = 1000
	connA.sndUna = 1000

	// Fill the window (credit ceiling: snd_nxt - snd_una + 1 >= window_size).
	if !ctxA.Send(connA, []byte("x"), time.Second) {
		t.Fatalf("first send should succeed")
	}
	nxtBefore := connA.sndNxt
	ok := ctxA.Send(connA, []byte("y"), 50*time.Millisecond)
	if ok {
		t.Fatalf("second send should block past window credit and then time out")
	}
	if connA.sndNxt != nxtBefore {
		t.Errorf("snd_nxt changed on a timed-out send: %d != %d", connA.sndNxt, nxtBefore)
	}
}
