// Package protocol implements the application-level framing described in
// the design: a tagged Event envelope (Pub/Sub/Unsub/Req/Res) carried
// inside every WebSocket frame, CBOR-encoded on binary frames and
// JSON-encoded on text frames, plus the protocol arms (service.Service
// values) that give each event type real behavior.
//
// Grounded on original_source/junta-protocol/src/event.rs: the wire
// schema is unchanged in shape (id, a tagged type, an optional name, an
// optional dynamic payload, an optional result), only flattened from
// Rust's payload-carrying enum variants into named struct fields, since
// Go has no tagged-union type to mirror EventType one-for-one.
package protocol

import (
	"encoding/json"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/mkrause/junta"
	"github.com/mkrause/junta/errs"
)

// EventType tags which of the five protocol operations an Event carries.
type EventType string

const (
	EventPub   EventType = "pub"
	EventSub   EventType = "sub"
	EventUnsub EventType = "unsub"
	EventReq   EventType = "req"
	EventRes   EventType = "res"
)

// ResError is the error shape carried by a Res event's Result.Err. Code
// is a reserved slot the core never inspects or assigns meaning to —
// applications are free to use it as they see fit.
type ResError struct {
	Code    int16  `cbor:"code" json:"code"`
	Message string `cbor:"message" json:"message"`
}

// ResResult is the outcome of a Req: exactly one of Ok or Err is set.
type ResResult struct {
	Ok  any       `cbor:"ok,omitempty" json:"ok,omitempty"`
	Err *ResError `cbor:"err,omitempty" json:"err,omitempty"`
}

// Event is the wire envelope for every application message. Which
// fields are populated depends on Type:
//
//	Sub/Unsub: Name holds the topic name.
//	Pub:       Name holds the topic name, Data holds the published value.
//	Req:       Name holds the request name, Data holds the request payload.
//	Res:       Name holds the request name the response answers, Result
//	           holds the outcome.
type Event struct {
	ID     uint64     `cbor:"id" json:"id"`
	Type   EventType  `cbor:"type" json:"type"`
	Name   string     `cbor:"name,omitempty" json:"name,omitempty"`
	Data   any        `cbor:"data,omitempty" json:"data,omitempty"`
	Result *ResResult `cbor:"result,omitempty" json:"result,omitempty"`
}

// EncodeEvent serializes ev as CBOR (binary=true) or JSON (binary=false)
// and wraps the result as a junta.MessageContent ready to send.
func EncodeEvent(ev Event, binary bool) (junta.MessageContent, error) {
	if binary {
		b, err := cbor.Marshal(ev)
		if err != nil {
			return nil, errs.Wrap(errs.Encoding, "encode cbor event", err)
		}
		return junta.BinaryContent(b), nil
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, errs.Wrap(errs.Encoding, "encode json event", err)
	}
	return junta.TextContent(b), nil
}

// cborDecMode decodes CBOR maps held in untyped fields (Data, Result.Ok)
// as map[string]any, the same shape encoding/json produces, so
// DecodeData can re-encode them.
var cborDecMode, _ = cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()

// DecodeEvent parses msg into an Event, choosing the CBOR or JSON codec
// by the frame's own kind (binary vs text), grounded on
// Event::try_from.
func DecodeEvent(msg junta.MessageContent) (Event, error) {
	var ev Event
	switch m := msg.(type) {
	case junta.BinaryContent:
		if err := cborDecMode.Unmarshal([]byte(m), &ev); err != nil {
			return Event{}, errs.Wrap(errs.Encoding, "decode cbor event", err)
		}
	case junta.TextContent:
		if err := json.Unmarshal([]byte(m), &ev); err != nil {
			return Event{}, errs.Wrap(errs.Encoding, "decode json event", err)
		}
	default:
		return Event{}, errs.New(errs.Encoding, "unrecognized message content")
	}
	return ev, nil
}

// DecodeData re-decodes ev.Data (already a generic CBOR/JSON value tree
// after DecodeEvent) into a concrete type D. It round-trips through JSON
// regardless of which wire codec produced ev, since by this point Data
// is already an in-memory value tree (map[string]any, []any, or a
// scalar) rather than raw bytes — the same role serde_cbor::Value plays
// in the source, decoded a second time via serde_cbor::from_value.
func DecodeData[D any](ev Event) (D, error) {
	var out D
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return out, errs.Wrap(errs.Encoding, "re-encode event data", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errs.Wrap(errs.Encoding, "decode event data", err)
	}
	return out, nil
}
