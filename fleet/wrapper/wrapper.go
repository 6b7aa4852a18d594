// Package wrapper decorates an http.Handler so that session and event data
// gets persisted fleet-wide without any change to the wrapped server. It is
// the transport-level counterpart of fleet/protocol's Interceptor: this
// package owns draining/re-presenting the request body and observing the
// response, while the Interceptor owns classification and session mutation.
package wrapper

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/viant/mcpdb/fleet/admission"
	"github.com/viant/mcpdb/fleet/metrics"
	"github.com/viant/mcpdb/fleet/protocol"
)

const (
	sessionIDHeader   = "Mcp-Session-Id"
	sessionIDAltHdr   = "X-Mcp-Session-Id"
	contentTypeHeader = "Content-Type"
	jsonContentType   = "application/json"
	sseContentType    = "text/event-stream"
)

// Middleware wraps an inner http.Handler, intercepting request bodies and
// response writes to run them through an Interceptor, and optionally
// admitting sessions this node has not seen before prior to forwarding.
type Middleware struct {
	interceptor *protocol.Interceptor
	admission   admission.Controller
}

// New constructs a Middleware around interceptor. admission may be nil, in
// which case requests for sessions unknown to this node are forwarded as-is
// (the inner handler will 404 them, matching its un-admitted behavior).
func New(interceptor *protocol.Interceptor, ctrl admission.Controller) *Middleware {
	return &Middleware{interceptor: interceptor, admission: ctrl}
}

// Wrap returns an http.Handler that decorates inner.
func (m *Middleware) Wrap(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil {
			inner.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		start := time.Now()

		headers := flattenHeaders(r.Header)
		state := &protocol.RequestState{ServerID: r.Host}
		passthrough := m.interceptor.HandleIncoming(r.Context(), body, headers, state)
		if state.SessionID == "" && (!passthrough || len(body) == 0) {
			state.SessionID = r.Header.Get(sessionIDHeader)
			if state.SessionID == "" {
				state.SessionID = r.Header.Get(sessionIDAltHdr)
			}
		}

		if m.admission != nil && state.SessionID != "" && state.LastMethod != "initialize" {
			if !m.admission.HasSession(state.SessionID) {
				_ = m.admission.EnsureSessionTransport(r.Context(), state.SessionID)
			}
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))

		overhead := time.Since(start)

		rec := newResponseRecorder(w, m.interceptor, r.Context(), state)
		inner.ServeHTTP(rec, r)

		start = time.Now()
		rec.flushTrailing()
		overhead += time.Since(start)

		metrics.WrapperOverheadSeconds.Observe(overhead.Seconds(), nil)
	})
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

// isSSE reports whether contentType names an SSE stream.
func isSSE(contentType string) bool {
	return strings.Contains(contentType, sseContentType)
}

// isJSON reports whether contentType names a JSON document.
func isJSON(contentType string) bool {
	return strings.Contains(contentType, jsonContentType)
}
