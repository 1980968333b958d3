package web

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"imagerelay/imagegen"
	"imagerelay/logging"
)

// promptProvider returns the prompt itself as the artifact, with an
// optional per-prompt delay so tests can control completion order.
type promptProvider struct {
	delays map[string]time.Duration
}

func (p *promptProvider) Generate(ctx context.Context, req imagegen.GenerationRequest) (string, error) {
	if delay, ok := p.delays[req.Prompt]; ok {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return req.Prompt, nil
}

// dialRealtime starts a test server around the channel and opens one
// websocket session against it.
func dialRealtime(t *testing.T, provider imagegen.Provider) *websocket.Conn {
	t.Helper()
	dispatcher, err := imagegen.NewDispatcher(provider, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	channel := NewRealtimeChannel(dispatcher, logging.NewTestLogger(), DefaultRealtimeConfig())

	server := httptest.NewServer(channel)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendRequestImage(t *testing.T, conn *websocket.Conn, prompt string) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"event": EventRequestImage, "data": prompt})
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
}

// readEnvelope reads one message and decodes its envelope.
func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return env
}

func decodeResultData(t *testing.T, env Envelope) imagegen.GenerationResult {
	t.Helper()
	var result imagegen.GenerationResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decoding result data: %v", err)
	}
	return result
}

// TestRealtimeGenerateSuccess verifies the two-event sequence for a valid
// prompt: a generating status followed by the success response.
func TestRealtimeGenerateSuccess(t *testing.T) {
	conn := dialRealtime(t, &promptProvider{})
	sendRequestImage(t, conn, "QUJD")

	env := readEnvelope(t, conn)
	if env.Event != EventStatus {
		t.Fatalf("first event = %q, want %q", env.Event, EventStatus)
	}
	var status StatusData
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decoding status data: %v", err)
	}
	if status.Status != StatusGenerating {
		t.Errorf("status = %q, want %q", status.Status, StatusGenerating)
	}

	env = readEnvelope(t, conn)
	if env.Event != EventImageResponse {
		t.Fatalf("second event = %q, want %q", env.Event, EventImageResponse)
	}
	result := decodeResultData(t, env)
	if result.Status != imagegen.StatusSuccess {
		t.Errorf("Status = %q, want %q", result.Status, imagegen.StatusSuccess)
	}
	if result.Image != "data:image/png;base64,QUJD" {
		t.Errorf("Image = %q, want data URI", result.Image)
	}
}

// TestRealtimeEmptyPrompt verifies an empty prompt gets a single error
// response with no interim status event.
func TestRealtimeEmptyPrompt(t *testing.T) {
	conn := dialRealtime(t, &promptProvider{})
	sendRequestImage(t, conn, "   ")

	env := readEnvelope(t, conn)
	if env.Event != EventImageResponse {
		t.Fatalf("first event = %q, want %q (no status for invalid prompt)", env.Event, EventImageResponse)
	}
	result := decodeResultData(t, env)
	if result.Status != imagegen.StatusError {
		t.Errorf("Status = %q, want %q", result.Status, imagegen.StatusError)
	}
	if result.Message != imagegen.MsgPromptRequired {
		t.Errorf("Message = %q, want %q", result.Message, imagegen.MsgPromptRequired)
	}
}

// TestRealtimeProviderFailure verifies a provider failure is delivered as
// a normalized error response, not a dropped message.
func TestRealtimeProviderFailure(t *testing.T) {
	provider := &failingRealtimeProvider{detail: "upstream busy"}
	conn := dialRealtime(t, provider)
	sendRequestImage(t, conn, "a red fox")

	env := readEnvelope(t, conn)
	if env.Event != EventStatus {
		t.Fatalf("first event = %q, want %q", env.Event, EventStatus)
	}

	env = readEnvelope(t, conn)
	if env.Event != EventImageResponse {
		t.Fatalf("second event = %q, want %q", env.Event, EventImageResponse)
	}
	result := decodeResultData(t, env)
	if result.Message != imagegen.MsgGenerationFailed {
		t.Errorf("Message = %q, want %q", result.Message, imagegen.MsgGenerationFailed)
	}
	if result.ErrorDetail != "upstream busy" {
		t.Errorf("ErrorDetail = %q, want %q", result.ErrorDetail, "upstream busy")
	}
}

type failingRealtimeProvider struct {
	detail string
}

func (p *failingRealtimeProvider) Generate(ctx context.Context, req imagegen.GenerationRequest) (string, error) {
	return "", &imagegen.ProviderError{StatusCode: 502, Detail: p.detail}
}

// TestRealtimeCompletionOrder verifies overlapping requests resolve in
// completion order: a fast request sent second is answered first.
func TestRealtimeCompletionOrder(t *testing.T) {
	provider := &promptProvider{delays: map[string]time.Duration{"slow": 300 * time.Millisecond}}
	conn := dialRealtime(t, provider)

	sendRequestImage(t, conn, "slow")
	sendRequestImage(t, conn, "fast")

	var responses []string
	for len(responses) < 2 {
		env := readEnvelope(t, conn)
		if env.Event != EventImageResponse {
			continue
		}
		result := decodeResultData(t, env)
		responses = append(responses, result.Image)
	}

	if responses[0] != "data:image/png;base64,fast" {
		t.Errorf("first response = %q, want the fast request's image", responses[0])
	}
	if responses[1] != "data:image/png;base64,slow" {
		t.Errorf("second response = %q, want the slow request's image", responses[1])
	}
}

// TestRealtimeMalformedMessage verifies a malformed frame is discarded and
// the session keeps serving subsequent requests.
func TestRealtimeMalformedMessage(t *testing.T) {
	conn := dialRealtime(t, &promptProvider{})

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	sendRequestImage(t, conn, "QUJD")

	env := readEnvelope(t, conn)
	if env.Event != EventStatus {
		t.Fatalf("first event = %q, want %q", env.Event, EventStatus)
	}
	env = readEnvelope(t, conn)
	if env.Event != EventImageResponse {
		t.Fatalf("second event = %q, want %q", env.Event, EventImageResponse)
	}
}

// TestRealtimeUnknownEvent verifies unknown events are ignored without
// closing the session.
func TestRealtimeUnknownEvent(t *testing.T) {
	conn := dialRealtime(t, &promptProvider{})

	payload, _ := json.Marshal(map[string]any{"event": "ping", "data": "x"})
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	sendRequestImage(t, conn, "QUJD")

	env := readEnvelope(t, conn)
	if env.Event != EventStatus {
		t.Errorf("first event after unknown = %q, want %q", env.Event, EventStatus)
	}
}
