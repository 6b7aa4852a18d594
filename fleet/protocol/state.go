package protocol

// RequestState carries per-request fields threaded through one HTTP request,
// replacing the context-dict bag ("_mcp_db_last_method", "_mcp_db_init_params",
// "_mcp_db_session_id") with explicit fields, per spec.md §9's redesign
// guidance.
type RequestState struct {
	SessionID  string
	LastMethod string
	InitParams map[string]any
	ServerID   string

	// LastEventIDHint carries the Last-Event-ID header value, used only as a
	// hint for stream resumption — never as a session id (spec.md §4.6).
	LastEventIDHint string
}
