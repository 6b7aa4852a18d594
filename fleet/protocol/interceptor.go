package protocol

import (
	"context"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/viant/mcpdb/fleet/manager"
	"github.com/viant/mcpdb/fleet/session"
)

// envelope is the cheap probe shape used to classify a JSON-RPC message
// without committing to a full decode, mirroring
// transport/server/base/detector.go's split between probe and precise parse.
type envelope struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
	Id     any            `json:"id"`
}

// Interceptor is stateless with respect to sessions; it mutates session
// state only via the manager (C5), per spec.md §4.6.
type Interceptor struct {
	manager *manager.Manager
}

// New constructs an Interceptor over mgr.
func New(mgr *manager.Manager) *Interceptor {
	return &Interceptor{manager: mgr}
}

// HandleIncoming classifies an incoming client message, deriving session
// lifecycle transitions via the manager, and returns whether raw must be
// forwarded verbatim as an opaque "raw passthrough" (malformed JSON). A
// message with no resolvable session id returns false and has no lifecycle
// effect beyond recording its method (and, for initialize, its params).
func (i *Interceptor) HandleIncoming(ctx context.Context, raw []byte, headers map[string]string, state *RequestState) (passthrough bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return true
	}

	sessionID := extractSessionID(env, headers, state)
	state.LastMethod = env.Method
	if env.Method == "initialize" {
		state.InitParams = env.Params
	}
	if sessionID == "" {
		return false
	}
	state.SessionID = sessionID

	switch {
	case env.Method == "initialize":
		i.appendEvent(ctx, sessionID, "MessageReceivedEvent")
	case env.Method == "notifications/initialized" || env.Method == "initialized":
		_ = i.manager.Update(ctx, sessionID, map[string]any{"status": session.StatusActive})
		i.appendEvent(ctx, sessionID, "SessionInitializedEvent")
	default:
		i.appendEvent(ctx, sessionID, "MessageReceivedEvent")
	}
	return false
}

// extractSessionID resolves a session id using precedence: params.session_id,
// header Mcp-Session-Id, header X-Mcp-Session-Id, falling back to nothing —
// Last-Event-ID is recorded as a resumption hint only, never as a session id.
func extractSessionID(env envelope, headers map[string]string, state *RequestState) string {
	if env.Params != nil {
		if sid, ok := env.Params["session_id"].(string); ok && sid != "" {
			return sid
		}
	}
	lower := make(map[string]string, len(headers))
	for k, v := range headers {
		lower[strings.ToLower(k)] = v
	}
	if sid := lower["mcp-session-id"]; sid != "" {
		return sid
	}
	if sid := lower["x-mcp-session-id"]; sid != "" {
		return sid
	}
	if hint := lower["last-event-id"]; hint != "" && state != nil {
		state.LastEventIDHint = hint
	}
	return ""
}

// HandleOutgoing observes a server response before it is forwarded to the
// client, lazily creating the session record on first sight (per §4.6) and
// detecting server-initiated termination.
func (i *Interceptor) HandleOutgoing(ctx context.Context, sessionID string, response []byte, state *RequestState) {
	if sessionID == "" {
		return
	}
	existing, _ := i.manager.Get(ctx, sessionID)
	if existing == nil || state.LastMethod == "initialize" {
		rec := &session.Record{
			Id:           sessionID,
			Status:       session.StatusInitialized,
			ClientId:     clientIdFrom(state.InitParams),
			ServerId:     state.ServerID,
			Capabilities: capabilitiesFrom(state.InitParams),
			Metadata:     map[string]string{"origin": "interceptor"},
		}
		_ = i.manager.Create(ctx, rec)
		i.appendEvent(ctx, sessionID, "SessionCreatedEvent")
	}

	i.appendEvent(ctx, sessionID, "MessageSentEvent")

	var env envelope
	if err := json.Unmarshal(response, &env); err == nil && env.Method == "server/disconnect" {
		_ = i.manager.Update(ctx, sessionID, map[string]any{"status": session.StatusClosed})
		i.appendEvent(ctx, sessionID, "SessionClosedEvent")
	}
}

func (i *Interceptor) appendEvent(ctx context.Context, _ string, _ string) {
	// Per-session event persistence belongs to the engine's streaming
	// transport (C4), not the session manager; this call is kept to mirror
	// the original's _append_event call sites and stays a no-op.
	_ = i.manager.AppendEvent(ctx)
}

func clientIdFrom(initParams map[string]any) string {
	if initParams == nil {
		return "unknown"
	}
	clientInfo, _ := initParams["clientInfo"].(map[string]any)
	if clientInfo == nil {
		return "unknown"
	}
	name, _ := clientInfo["name"].(string)
	if name == "" {
		return "unknown"
	}
	return name
}

func capabilitiesFrom(initParams map[string]any) map[string]any {
	if initParams == nil {
		return nil
	}
	caps, _ := initParams["capabilities"].(map[string]any)
	return caps
}
