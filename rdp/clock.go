package rdp

import "time"

// clock abstracts "now" so the retransmit/delayed-ack timing in
// maintenance.go can be driven deterministically from tests without
// sleeping for real packet_timeout_ms/ack_timeout_ms durations. Production
// contexts use realClock; nothing in the teacher repo needed this because
// its tests never exercised timeout behavior (lib/connection_test.go only
// covers the pure sequence comparator).
type clock interface {
	now() time.Time
}

type realClock struct{}

func (realClock) now() time.Time { return time.Now() }

// fakeClock is a test-only manually-advanced clock.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(0, 0)} }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
