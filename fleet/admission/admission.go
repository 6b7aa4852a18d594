// Package admission reconstructs a live JSON-RPC session on a node that did
// not originate it, so a request routed here for a session another process
// owns can be served instead of bouncing with a 404.
package admission

import (
	"context"
	"io"
	"sync"

	"github.com/viant/mcpdb"
	"github.com/viant/mcpdb/fleet/manager"
	"github.com/viant/mcpdb/fleet/session"
	"github.com/viant/mcpdb/transport/server/base"
	"github.com/viant/mcpdb/transport/server/http/streamable"
)

// Controller checks whether a session's transport is already registered
// locally and, if not, rehydrates it.
type Controller interface {
	HasSession(sessionID string) bool
	EnsureSessionTransport(ctx context.Context, sessionID string) error
}

// warmingNotification is sent once per session id, the first time this node
// observes it in StatusActive, so the application handler reaches the same
// bootstrap state a locally handshaken session would be in.
var warmingNotification = []byte(`{"jsonrpc":"2.0","method":"notifications/initialized","params":{}}`)

// StreamableController admits sessions into a Streamable-HTTP handler's
// session table. It mirrors the rehydration the node that originated a
// session performed at handshake time, using the fleet-wide session record
// (C5) as the source of truth for status instead of the SDK's in-process
// state.
type StreamableController struct {
	handler    *streamable.Handler
	manager    *manager.Manager
	eventStore base.EventSink

	warmedMu sync.Mutex
	warmed   map[string]bool
}

// New constructs a StreamableController over handler's session table,
// consulting mgr for the authoritative record of a session this node has
// never seen. eventStore may be nil, in which case reconstructed sessions
// get no fleet-level event persistence.
func New(handler *streamable.Handler, mgr *manager.Manager, eventStore base.EventSink) *StreamableController {
	return &StreamableController{
		handler:    handler,
		manager:    mgr,
		eventStore: eventStore,
		warmed:     map[string]bool{},
	}
}

// HasSession reports whether sessionID is already registered in the local
// session table, i.e. whether rehydration can be skipped entirely.
func (c *StreamableController) HasSession(sessionID string) bool {
	_, ok := c.handler.Base().Sessions.Get(sessionID)
	return ok
}

// EnsureSessionTransport rehydrates sessionID's local transport according to
// the fleet-wide record's status: INITIALIZED and ACTIVE sessions get their
// transport reconstructed, ACTIVE additionally triggers a one-shot warming
// of the application handler, and INITIALIZING/CLOSED sessions get no action
// at all (there is nothing ready, or nothing left, to serve). A session the
// fleet-wide store has no record of is still reconstructed on a best-effort
// basis, since the record may simply not have replicated here yet.
func (c *StreamableController) EnsureSessionTransport(ctx context.Context, sessionID string) error {
	if c.HasSession(sessionID) {
		return nil
	}

	record, err := c.manager.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if record == nil {
		c.register(ctx, sessionID)
		return nil
	}

	switch record.Status {
	case session.StatusInitialized:
		c.register(ctx, sessionID)
	case session.StatusActive:
		c.register(ctx, sessionID)
		c.warmOnce(ctx, sessionID)
	default:
		// StatusInitializing, StatusClosed, StatusSuspended, StatusRecovering:
		// no local transport to reconstruct.
	}
	return nil
}

// register creates a base.Session for sessionID and places it in the local
// handler's session table, attaching the fleet event store when one is
// configured so the reconstructed session persists outgoing messages the
// same way a locally originated one would.
func (c *StreamableController) register(ctx context.Context, sessionID string) {
	aSession := base.NewSession(ctx, sessionID, io.Discard, c.handler.NewSessionHandler())
	if c.eventStore != nil {
		base.WithEventStore(c.eventStore, sessionID)(aSession)
	}
	c.handler.Base().Sessions.Put(sessionID, aSession)
}

// warmOnce sends the synthetic notifications/initialized message to
// sessionID's freshly reconstructed application handler exactly once per
// session id on this node, the first time the session is observed ACTIVE.
func (c *StreamableController) warmOnce(ctx context.Context, sessionID string) {
	c.warmedMu.Lock()
	if c.warmed[sessionID] {
		c.warmedMu.Unlock()
		return
	}
	c.warmed[sessionID] = true
	c.warmedMu.Unlock()

	aSession, ok := c.handler.Base().Sessions.Get(sessionID)
	if !ok {
		return
	}
	ctx = context.WithValue(ctx, jsonrpc.SessionKey, aSession)
	c.handler.Base().HandleMessage(ctx, aSession, warmingNotification, nil)
}
