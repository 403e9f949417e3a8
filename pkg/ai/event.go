package ai

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
	"github.com/tidwall/gjson"
)

// EventTypeRunError is the type of the event synthesized when a streamed run fails.
const EventTypeRunError = "runError"

// Event is one decoded stream event. Raw holds the JSON exactly as received; Fields holds the
// decoded object, or nil when the event is not a JSON object.
type Event struct {
	Raw    json.RawMessage
	Fields map[string]any
}

// EventHandler receives stream events in arrival order. It runs on the goroutine reading the
// stream and must return promptly.
type EventHandler func(Event)

// RunErrorEvent is the typed view of a runError event.
type RunErrorEvent struct {
	Type  string `json:"type"`
	RunID string `json:"runId"`
	Error string `json:"error"`
}

func parseEvent(data string) (Event, error) {
	var v any
	if err := codec.UnmarshalFromString(data, &v); err != nil {
		return Event{}, err
	}
	ev := Event{Raw: json.RawMessage(data)}
	if m, ok := v.(map[string]any); ok {
		ev.Fields = m
	}
	return ev, nil
}

func newRunErrorEvent(runID, msg string) Event {
	fields := map[string]any{
		"type":  EventTypeRunError,
		"runId": runID,
		"error": msg,
	}
	raw, _ := codec.Marshal(fields)
	return Event{Raw: raw, Fields: fields}
}

// Type returns the event's "type" discriminator.
func (e Event) Type() string {
	return gjson.GetBytes(e.Raw, "type").String()
}

// RunID returns the event's "runId" field and whether it is present.
func (e Event) RunID() (string, bool) {
	if e.Fields == nil {
		return "", false
	}
	r := gjson.GetBytes(e.Raw, "runId")
	if !r.Exists() {
		return "", false
	}
	return r.String(), true
}

// Get returns the value at a gjson path, e.g. "delta.text".
func (e Event) Get(path string) gjson.Result {
	return gjson.GetBytes(e.Raw, path)
}

// IsRunError reports whether the event reports a failed run.
func (e Event) IsRunError() bool {
	return e.Type() == EventTypeRunError
}

// Decode copies the event's fields into out, matching on json tags.
func (e Event) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(e.Fields)
}
