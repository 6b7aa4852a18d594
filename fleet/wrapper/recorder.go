package wrapper

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/viant/mcpdb/fleet/protocol"
)

// responseRecorder wraps http.ResponseWriter, observing everything written
// to it so completed JSON bodies and individual SSE "data:" frames can be
// run through the Interceptor's HandleOutgoing without altering what is
// actually sent to the client.
type responseRecorder struct {
	http.ResponseWriter
	ctx         context.Context
	interceptor *protocol.Interceptor
	state       *protocol.RequestState

	contentType  string
	headerWrote  bool
	jsonBuf      bytes.Buffer
	sseLineBuf   bytes.Buffer
	statusCode   int
}

func newResponseRecorder(w http.ResponseWriter, interceptor *protocol.Interceptor, ctx context.Context, state *protocol.RequestState) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, ctx: ctx, interceptor: interceptor, state: state, statusCode: http.StatusOK}
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.contentType = r.Header().Get(contentTypeHeader)
	if sid := r.Header().Get(sessionIDHeader); sid != "" {
		r.state.SessionID = sid
	} else if sid := r.Header().Get(sessionIDAltHdr); sid != "" {
		r.state.SessionID = sid
	}
	r.headerWrote = true
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if !r.headerWrote {
		r.WriteHeader(http.StatusOK)
	}
	switch {
	case isJSON(r.contentType):
		r.jsonBuf.Write(p)
	case isSSE(r.contentType):
		r.observeSSE(p)
	}
	return r.ResponseWriter.Write(p)
}

// Flush forwards to the underlying writer when it supports flushing,
// preserving the streaming handler's per-write flush behavior.
func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack forwards to the underlying writer when it supports hijacking.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// observeSSE accumulates bytes until a newline, parsing complete "data:"
// lines and forwarding their JSON payload to HandleOutgoing.
func (r *responseRecorder) observeSSE(p []byte) {
	r.sseLineBuf.Write(p)
	for {
		buf := r.sseLineBuf.Bytes()
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(buf[:idx], "\r"))
		rest := append([]byte(nil), buf[idx+1:]...)
		r.sseLineBuf.Reset()
		r.sseLineBuf.Write(rest)

		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if data != "" && r.state.SessionID != "" {
				r.interceptor.HandleOutgoing(r.ctx, r.state.SessionID, []byte(data), r.state)
			}
		}
	}
}

// flushTrailing runs any buffered complete JSON body through HandleOutgoing
// once the handler has finished writing. SSE frames were already observed
// line-by-line as they streamed.
func (r *responseRecorder) flushTrailing() {
	if isJSON(r.contentType) && r.jsonBuf.Len() > 0 && r.state.SessionID != "" {
		r.interceptor.HandleOutgoing(r.ctx, r.state.SessionID, r.jsonBuf.Bytes(), r.state)
	}
}
