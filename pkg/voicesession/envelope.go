package voicesession

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// Envelope is the boundary representation of a telemetry event as delivered
// by a route-handler collaborator: an untyped JSON payload discriminated by
// a type string. DecodeEnvelope validates it and produces the typed Event
// the manager consumes.
type Envelope struct {
	SessionID string
	Timestamp time.Time
	Event     Event
}

const envelopeSchemaJSON = `{
	"type": "object",
	"required": ["sessionId", "type", "timestamp", "data"],
	"properties": {
		"sessionId": {"type": "string", "minLength": 1},
		"type": {"enum": ["turn_start", "turn_complete", "tool_call", "tool_result"]},
		"timestamp": {"type": "string"},
		"data": {"type": "object"}
	}
}`

var eventSchemaJSON = map[EventType]string{
	EventTurnStart: `{
		"type": "object",
		"required": ["turnNumber"],
		"properties": {
			"turnNumber": {"type": "integer", "minimum": 0},
			"userTranscript": {"type": "string"}
		}
	}`,
	EventTurnComplete: `{
		"type": "object",
		"required": ["turnNumber"],
		"properties": {
			"turnNumber": {"type": "integer", "minimum": 0},
			"aiTranscript": {"type": "string"},
			"durationMs": {"type": "integer", "minimum": 0}
		}
	}`,
	EventToolCall: `{
		"type": "object",
		"required": ["turnNumber", "toolName"],
		"properties": {
			"turnNumber": {"type": "integer", "minimum": 0},
			"toolName": {"type": "string", "minLength": 1},
			"toolArgs": {"type": "object"}
		}
	}`,
	EventToolResult: `{
		"type": "object",
		"required": ["turnNumber", "toolName"],
		"properties": {
			"turnNumber": {"type": "integer", "minimum": 0},
			"toolName": {"type": "string", "minLength": 1},
			"durationMs": {"type": "integer", "minimum": 0}
		}
	}`,
}

var (
	envelopeSchema *gojsonschema.Schema
	eventSchemas   map[EventType]*gojsonschema.Schema
)

func init() {
	envelopeSchema = mustCompileSchema(envelopeSchemaJSON)
	eventSchemas = make(map[EventType]*gojsonschema.Schema, len(eventSchemaJSON))
	for typ, raw := range eventSchemaJSON {
		eventSchemas[typ] = mustCompileSchema(raw)
	}
}

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schema
}

type rawEnvelope struct {
	SessionID string          `json:"sessionId"`
	Type      EventType       `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// DecodeEnvelope validates a raw JSON envelope and returns the typed event.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	if err := validate(envelopeSchema, raw); err != nil {
		return nil, fmt.Errorf("invalid event envelope: %w", err)
	}

	var re rawEnvelope
	if err := json.Unmarshal(raw, &re); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, re.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid event timestamp: %w", err)
	}

	event, err := DecodeEvent(re.Type, re.Data)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		SessionID: re.SessionID,
		Timestamp: ts,
		Event:     event,
	}, nil
}

// DecodeEvent validates an event payload against its type's schema and
// returns the typed event.
func DecodeEvent(typ EventType, data []byte) (Event, error) {
	schema, ok := eventSchemas[typ]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", typ)
	}

	if err := validate(schema, data); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", typ, err)
	}

	var event Event
	switch typ {
	case EventTurnStart:
		var e TurnStart
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", typ, err)
		}
		event = e
	case EventTurnComplete:
		var e TurnComplete
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", typ, err)
		}
		event = e
	case EventToolCall:
		var e ToolCall
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", typ, err)
		}
		event = e
	case EventToolResult:
		var e ToolResult
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", typ, err)
		}
		event = e
	}

	return event, nil
}

func validate(schema *gojsonschema.Schema, doc []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, resErr := range result.Errors() {
		msgs = append(msgs, resErr.String())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
