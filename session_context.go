package jsonrpc

// sessionKeyType is an unexported type so SessionKey can't collide with keys
// defined by other packages stashing values in the same context.Context.
type sessionKeyType struct{}

// SessionKey is the context.Context key under which a transport stashes the
// active session (or session id) for the lifetime of one request.
var SessionKey = sessionKeyType{}

// AsRequestIntId normalizes a RequestId decoded off the wire (which may
// surface as float64, json.Number, int, or int64 depending on the decoder)
// into an int, for code that needs to treat ids as a monotonic sequence.
func AsRequestIntId(id RequestId) (int, bool) {
	switch v := id.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
