package base

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/google/uuid"
	"github.com/viant/mcpdb"
	"github.com/viant/mcpdb/transport"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// EventSink is the minimal event-persistence contract a Session needs from a
// fleet-level event store (see fleet/event). It is satisfied structurally by
// fleet/event.MemoryStore and fleet/event.RedisStore without either package
// importing the other.
type EventSink interface {
	StoreEvent(ctx context.Context, streamID string, message []byte) (uint64, error)
	ReplayEventsAfter(ctx context.Context, lastEventID uint64, send func([]byte) error) (streamID string, err error)
}

type Session struct {
	Id         string `json:"id"`
	RoundTrips *transport.RoundTrips
	Writer     io.Writer
	Handler    transport.Handler
	framer     FrameMessage
	Seq        uint64
	bufferSize int
	events     []event
	err        error
	closed     int32
	sync.Mutex
	// sse enables SSE id injection and matching replay ids
	sse bool

	// Lifecycle metadata
	CreatedAt     time.Time
	LastSeen      time.Time
	DetachedAt    *time.Time
	State         SessionState
	WriterPresent bool

	// buffer overflow handling
	overflowPolicy OverflowPolicy
	overflowed     bool

	// writerGen increments on each writer (re)attachment to guard concurrent writers.
	writerGen uint64

	// EventStore, when set, replaces the local events ring for persistence and
	// replay: every outgoing message is appended to EventStore under StreamID
	// (defaulting to Id) and assigned a store-wide monotonic event id. This is
	// how C4 attaches to the engine's streaming transport (spec §3, §4.4).
	EventStore EventSink
	StreamID   string
}

// LastRequestID returns the most recently generated request id without mutating the underlying sequence.
// It is concurrency-safe and can be used to inspect the current sequence value.
func (s *Session) LastRequestID() jsonrpc.RequestId {
	return int(atomic.LoadUint64(&s.Seq))
}

func (s *Session) NextRequestID() jsonrpc.RequestId {
	return int(atomic.AddUint64(&s.Seq, 1))
}

type event struct {
	id   uint64
	data []byte
}

// SetError sets error
func (s *Session) SetError(err error) {
	s.err = err
}

// Error returns error
func (s *Session) Error() error {
	return s.err
}

func (s *Session) frameMessage(data []byte) []byte {
	if s.framer == nil {
		return data
	}
	return s.framer(data)
}

// SendError sends error
func (s *Session) SendError(ctx context.Context, error *jsonrpc.Error) {
	data, err := json.Marshal(error)
	if err != nil {
		fmt.Println(err)
		return
	}
	s.SendData(ctx, data)
}

// SendResponse sends response
func (s *Session) SendResponse(ctx context.Context, response *jsonrpc.Response) {
	if response.Error != nil {
		response.Result = nil
	}
	data, err := json.Marshal(response)
	if err != nil {
		return
	}
	s.SendData(ctx, data)
}

// SendRequest sends response
func (s *Session) SendRequest(ctx context.Context, request *jsonrpc.Request) {
	data, err := json.Marshal(request)
	if err != nil {
		fmt.Println(err)
		return
	}
	s.SendData(ctx, data)

}

func (s *Session) sendNotification(ctx context.Context, notification *jsonrpc.Notification) error {
	params, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	request := &jsonrpc.Request{
		Jsonrpc: jsonrpc.Version,
		Method:  notification.Method,
		Params:  params,
	}
	data, err := json.Marshal(request)
	if err != nil {
		return err
	}
	s.SendData(ctx, data)
	return s.err
}

// streamID returns the stream under which this session's events are stored.
func (s *Session) streamID() string {
	if s.StreamID != "" {
		return s.StreamID
	}
	return s.Id
}

// SendData sends data
func (s *Session) SendData(ctx context.Context, data []byte) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	s.LastSeen = time.Now()

	if s.EventStore != nil {
		id, err := s.EventStore.StoreEvent(ctx, s.streamID(), data)
		if err != nil {
			s.SetError(err)
			return
		}
		framed := s.frameEventStoreMessage(id, data)
		if s.Writer != nil {
			if _, werr := s.Writer.Write(framed); werr != nil {
				s.SetError(werr)
			}
		}
		return
	}

	framed := s.frameMessage(data)
	if s.sse {
		id := atomic.AddUint64(&s.Seq, 1)
		prefix := []byte(fmt.Sprintf("id: %d\n", id))
		full := append(prefix, framed...)
		if s.Writer != nil {
			_, err := s.Writer.Write(full)
			if err != nil {
				s.SetError(err)
			}
		}
		if s.bufferSize > 0 {
			s.storeEvent(id, full)
		}
		return
	}
	if s.Writer != nil {
		_, err := s.Writer.Write(framed)
		if err != nil {
			s.SetError(err)
		}
	}
	if s.bufferSize > 0 {
		id := atomic.AddUint64(&s.Seq, 1)
		s.storeEvent(id, framed)
	}
}

// frameEventStoreMessage frames data carrying the event-store-assigned id,
// using SSE "id:"/"data:" framing when sse is enabled, else the plain framer.
func (s *Session) frameEventStoreMessage(id uint64, data []byte) []byte {
	if s.sse {
		body := s.frameMessage(data)
		prefix := []byte("id: " + strconv.FormatUint(id, 10) + "\n")
		return append(prefix, body...)
	}
	return s.frameMessage(data)
}

func (s *Session) storeEvent(id uint64, data []byte) {
	s.events = append(s.events, event{id: id, data: append([]byte(nil), data...)})
	if len(s.events) > s.bufferSize {
		// handle overflow
		if s.overflowPolicy == OverflowMark {
			s.overflowed = true
		}
		// drop oldest
		excess := len(s.events) - s.bufferSize
		s.events = s.events[excess:]
	}
}

// EventsAfter returns buffered framed messages with id greater than lastID.
// Messages sent while an EventStore is attached are not buffered locally and
// so are not returned here; ReplayEventsAfter replays them from the store.
func (s *Session) EventsAfter(lastID uint64) [][]byte {
	if lastID == 0 || len(s.events) == 0 {
		res := make([][]byte, len(s.events))
		for i, ev := range s.events {
			res[i] = ev.data
		}
		return res
	}
	var idx int
	// simple linear search as buffer small
	for idx < len(s.events) && s.events[idx].id <= lastID {
		idx++
	}
	if idx >= len(s.events) {
		return nil
	}
	res := make([][]byte, len(s.events)-idx)
	for i := idx; i < len(s.events); i++ {
		res[i-idx] = s.events[i].data
	}
	return res
}

// ReplayEventsAfter replays events after lastID through the attached
// EventStore, writing each framed message to send. It is a no-op returning
// ok=false if no EventStore is attached.
func (s *Session) ReplayEventsAfter(ctx context.Context, lastID uint64, send func([]byte) error) (ok bool, err error) {
	if s.EventStore == nil {
		return false, nil
	}
	_, err = s.EventStore.ReplayEventsAfter(ctx, lastID, func(message []byte) error {
		return send(s.frameMessage(message))
	})
	if err != nil {
		return true, err
	}
	return true, nil
}

func NewSession(ctx context.Context, id string, writer io.Writer, newHandler transport.NewHandler, options ...Option) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	ret := &Session{
		Id:            id,
		Writer:        writer,
		RoundTrips:    transport.NewRoundTrips(20),
		CreatedAt:     time.Now(),
		LastSeen:      time.Now(),
		State:         SessionStateActive,
		WriterPresent: writer != nil,
	}
	ret.Handler = newHandler(ctx, NewTransport(ret.RoundTrips, ret.SendData, ret))
	for _, option := range options {
		option(ret)
	}
	return ret
}

// SessionState represents lifecycle state of a session.
type SessionState int

const (
	SessionStateActive SessionState = iota
	SessionStateDetached
	SessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionStateActive:
		return "active"
	case SessionStateDetached:
		return "detached"
	case SessionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Touch updates LastSeen timestamp.
func (s *Session) Touch() {
	s.Mutex.Lock()
	s.LastSeen = time.Now()
	s.Mutex.Unlock()
}

// MarkDetached marks session as detached and records time.
func (s *Session) MarkDetached() {
	s.Mutex.Lock()
	now := time.Now()
	s.DetachedAt = &now
	s.State = SessionStateDetached
	s.WriterPresent = false
	s.Mutex.Unlock()
}

// MarkActiveWithWriter re-attaches a writer and marks session active.
func (s *Session) MarkActiveWithWriter(w io.Writer) {
	s.Mutex.Lock()
	s.Writer = w
	s.WriterPresent = w != nil
	s.State = SessionStateActive
	s.DetachedAt = nil
	s.LastSeen = time.Now()
	atomic.AddUint64(&s.writerGen, 1)
	s.Mutex.Unlock()
}

// WriterGeneration returns the current writer attachment generation.
func (s *Session) WriterGeneration() uint64 {
	return atomic.LoadUint64(&s.writerGen)
}
