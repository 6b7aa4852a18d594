package session

import (
	"errors"
	"time"
)

// Status is a session lifecycle state, per the DAG:
//
//	INITIALIZING -> INITIALIZED -> ACTIVE -> {SUSPENDED, CLOSED}
//	SUSPENDED -> {ACTIVE (via RECOVERING), CLOSED}
//	RECOVERING -> {ACTIVE, CLOSED}
//	CLOSED is terminal.
type Status string

const (
	StatusInitializing Status = "INITIALIZING"
	StatusInitialized  Status = "INITIALIZED"
	StatusActive       Status = "ACTIVE"
	StatusSuspended    Status = "SUSPENDED"
	StatusRecovering   Status = "RECOVERING"
	StatusClosed       Status = "CLOSED"
)

var legalTransitions = map[Status]map[Status]bool{
	StatusInitializing: {StatusInitialized: true},
	StatusInitialized:  {StatusActive: true},
	StatusActive:       {StatusSuspended: true, StatusClosed: true},
	StatusSuspended:    {StatusRecovering: true, StatusClosed: true},
	StatusRecovering:   {StatusActive: true, StatusClosed: true},
	StatusClosed:       {},
}

// ErrIllegalTransition is returned when a status change does not follow the DAG.
var ErrIllegalTransition = errors.New("session: illegal status transition")

// CanTransition reports whether moving from 'from' to 'to' is a legal edge in
// the lifecycle DAG. A no-op transition (from == to) is always legal.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	next, ok := legalTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Record is the session record of the data model: an opaque, server-assigned
// id with negotiated capabilities and free-form metadata.
type Record struct {
	Id           string            `json:"id"`
	Status       Status            `json:"status"`
	ClientId     string            `json:"client_id"`
	ServerId     string            `json:"server_id"`
	Capabilities map[string]any    `json:"capabilities,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	LastEventId  uint64            `json:"last_event_id,omitempty"`
}

// Clone returns a defensive deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	dup := *r
	if r.Capabilities != nil {
		dup.Capabilities = make(map[string]any, len(r.Capabilities))
		for k, v := range r.Capabilities {
			dup.Capabilities[k] = v
		}
	}
	if r.Metadata != nil {
		dup.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			dup.Metadata[k] = v
		}
	}
	return &dup
}

// ApplyPartial merges non-zero fields of patch over r, honoring the status
// DAG and the non-decreasing updated_at invariant. Capabilities/Metadata
// entries in patch are merged key-by-key, not replaced wholesale.
func (r *Record) ApplyPartial(patch map[string]any, now time.Time) error {
	if status, ok := patch["status"]; ok {
		s, _ := status.(Status)
		if s == "" {
			if str, ok := status.(string); ok {
				s = Status(str)
			}
		}
		if s != "" {
			if !CanTransition(r.Status, s) {
				return ErrIllegalTransition
			}
			r.Status = s
		}
	}
	if v, ok := patch["client_id"].(string); ok && v != "" {
		r.ClientId = v
	}
	if v, ok := patch["server_id"].(string); ok && v != "" {
		r.ServerId = v
	}
	if v, ok := patch["capabilities"].(map[string]any); ok {
		if r.Capabilities == nil {
			r.Capabilities = map[string]any{}
		}
		for k, vv := range v {
			r.Capabilities[k] = vv
		}
	}
	if v, ok := patch["metadata"].(map[string]string); ok {
		if r.Metadata == nil {
			r.Metadata = map[string]string{}
		}
		for k, vv := range v {
			r.Metadata[k] = vv
		}
	}
	if v, ok := patch["last_event_id"].(uint64); ok {
		r.LastEventId = v
	}
	if now.Before(r.UpdatedAt) {
		now = r.UpdatedAt
	}
	r.UpdatedAt = now
	return nil
}
