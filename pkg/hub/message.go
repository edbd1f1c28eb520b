// Package hub fans session status out to websocket subscribers using
// channel-based register/unregister/broadcast loops.
package hub

import "encoding/json"

// Kind labels what a message carries so clients can route it.
type Kind string

const (
	KindStatus      Kind = "status"
	KindDistraction Kind = "distraction"
	KindReport      Kind = "report"
)

// Message is one frame sent to every subscriber.
type Message struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Encode wraps v as a message of the given kind and serializes it.
func Encode(kind Kind, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Kind: kind, Data: data})
}
