package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the kind of payload carried by an Envelope.
// The set is closed: an envelope carrying an unknown tag is rejected
// at the dispatch boundary instead of being silently ignored.
type EventType string

const (
	EventAlertNew       EventType = "alert:new"
	EventAlertUpdate    EventType = "alert:update"
	EventAlertDelete    EventType = "alert:delete"
	EventReportNew      EventType = "report:new"
	EventReportUpdate   EventType = "report:update"
	EventResourceNew    EventType = "resource:new"
	EventResourceUpdate EventType = "resource:update"
	EventUserLocation   EventType = "user:location"
	EventSystemStatus   EventType = "system:status"

	// Reserved heartbeat tags. Never delivered to application handlers.
	EventPing EventType = "ping"
	EventPong EventType = "pong"
)

// EventTypes lists every application-visible event type, in contract order.
var EventTypes = []EventType{
	EventAlertNew,
	EventAlertUpdate,
	EventAlertDelete,
	EventReportNew,
	EventReportUpdate,
	EventResourceNew,
	EventResourceUpdate,
	EventUserLocation,
	EventSystemStatus,
}

var knownEvents = func() map[EventType]struct{} {
	m := make(map[EventType]struct{}, len(EventTypes)+2)
	for _, t := range EventTypes {
		m[t] = struct{}{}
	}
	m[EventPing] = struct{}{}
	m[EventPong] = struct{}{}
	return m
}()

// Valid reports whether t is part of the wire contract.
func (t EventType) Valid() bool {
	_, ok := knownEvents[t]
	return ok
}

// Reserved reports whether t is a heartbeat tag.
func (t EventType) Reserved() bool {
	return t == EventPing || t == EventPong
}

// Envelope is the wire message format in both directions:
// {type, data, timestamp} serialized as JSON text, timestamp in Unix
// milliseconds.
type Envelope struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// NewEnvelope builds an envelope with the given payload marshaled into Data.
func NewEnvelope(t EventType, payload any, now time.Time) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: t, Data: data, Timestamp: now.UnixMilli()}, nil
}

// Encode converts the envelope to JSON bytes.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses and validates an inbound envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Validate checks the envelope against the wire contract.
func (e *Envelope) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidEnvelope)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	return nil
}
