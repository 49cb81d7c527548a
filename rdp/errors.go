package rdp

import "errors"

// Sentinel errors covering the handful of absorbed-error cases §7 describes.
// ErrPoolExhausted is a genuine Go error, propagated from bufPool.alloc up
// through parsePacket/Context.transmit to whichever caller asked for a
// buffer. The other four never cross a state-machine boundary as a return
// value - Send/Close/ConnectActive/Ingress/CheckTimeouts report bool (or
// nothing) per §7's policy, but log one of these at the exact point the
// condition is absorbed, so the failure mode is still named and greppable
// rather than an ad hoc string.
var (
	// ErrLockTimeout marks a failed token (§4.1) acquisition within
	// rdpLockTimeoutMs. Logged by Send, Close, Destroy, ConnectActive,
	// Ingress and CheckTimeouts at their respective token.acquire() sites.
	ErrLockTimeout = errors.New("rdp: token acquisition timed out")

	// ErrPoolExhausted is returned by bufPool.alloc (and by parsePacket
	// and Context.transmit, which call it) when the shared buffer pool has
	// no free chunk. The maintenance retransmit pass logs it and skips that
	// retransmission.
	ErrPoolExhausted = errors.New("rdp: buffer pool exhausted")

	// ErrNotOpen is logged by Send when the connection is not in the OPEN
	// state.
	ErrNotOpen = errors.New("rdp: connection is not open")

	// ErrSendTimeout is logged by Send when the caller-supplied timeout
	// expires while blocked on tx_wait for window credit (§4.4, §5).
	ErrSendTimeout = errors.New("rdp: send blocked on window credit past timeout")

	// ErrClosed is logged by Close (called again on an already-CLOSED
	// connection) and by ConnectActive when both handshake attempts are
	// exhausted and the connection settles into CLOSE_WAIT.
	ErrClosed = errors.New("rdp: connection is closed")
)
