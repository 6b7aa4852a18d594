package base

// RemovalPolicy determines when a session should be removed from the session store.
type RemovalPolicy int

const (
	// RemovalOnDisconnect removes session as soon as streaming connection closes.
	// Useful for strict cleanup behavior.
	RemovalOnDisconnect RemovalPolicy = iota
	// RemovalAfterGrace keeps session for a grace period to allow quick reconnects.
	RemovalAfterGrace
	// RemovalAfterIdle removes session after it has been idle for a configured TTL.
	RemovalAfterIdle
	// RemovalManual leaves removal entirely to explicit DELETE or external cleanup.
	RemovalManual
)

// OverflowPolicy determines what happens to a session's event buffer once it
// reaches capacity.
type OverflowPolicy int

const (
	// OverflowDropOldest silently drops the oldest buffered event to make room
	// for the newest one. This is the default.
	OverflowDropOldest OverflowPolicy = iota
	// OverflowMark drops the oldest event like OverflowDropOldest and also
	// sets the session's unexported overflowed flag. Nothing reads that flag:
	// EventsAfter and ReplayEventsAfter do not report that events were dropped.
	OverflowMark
)
