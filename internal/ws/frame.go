package ws

import "encoding/json"

// Frame is the wire envelope in both directions: a named event and its
// positional arguments. Args stay raw so each handler decodes only the
// shapes it expects.
type Frame struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args"`
}

// encodeFrame marshals an event and its arguments into one wire frame
func encodeFrame(event string, args ...any) ([]byte, error) {
	f := Frame{Event: event, Args: make([]json.RawMessage, 0, len(args))}
	for _, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		f.Args = append(f.Args, raw)
	}
	return json.Marshal(&f)
}
