package web

import "encoding/json"

// Websocket event names shared between client and server.
const (
	// EventRequestImage is sent by a client to request an image generation.
	// Its data payload is the prompt string.
	EventRequestImage = "request-image"

	// EventStatus is emitted by the server when a valid generation request
	// has been accepted and handed to the provider.
	EventStatus = "status"

	// EventImageResponse is emitted by the server exactly once per
	// generation request, carrying the terminal result.
	EventImageResponse = "image-response"
)

// StatusGenerating is the status value emitted while a generation is in flight.
const StatusGenerating = "generating"

// Envelope is the wire format for websocket messages in both directions:
// an event name plus an event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outEnvelope is the server-to-client form, with an already-materialized
// payload so callers hand over plain structs.
type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// StatusData is the payload of an EventStatus message.
type StatusData struct {
	Status string `json:"status"`
}

// encodeEvent serializes a server-to-client message.
func encodeEvent(event string, data any) ([]byte, error) {
	return json.Marshal(outEnvelope{Event: event, Data: data})
}
