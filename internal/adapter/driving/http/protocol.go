package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Wyydra/huddle/internal/core/domain"
)

var (
	errMalformedFrame = errors.New("malformed frame")
	errUnknownEvent   = errors.New("unknown event")
)

type incomingFrame struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args"`
}

type logPayload struct {
	Room    json.RawMessage `json:"room"`
	Message json.RawMessage `json:"message"`
}

// decodeCommand turns one text frame into a coordinator command. Missing or
// non-string room ids decode to the empty RoomID rather than an error; the
// coordinator decides what that means.
func decodeCommand(id domain.ConnID, data []byte) (domain.Command, error) {
	var f incomingFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}

	switch f.Event {
	case domain.EventJoinRoom:
		return domain.Join{
			ConnID: id,
			Room:   domain.RoomID(stringArg(f.Args, 0)),
			Peer:   domain.PeerID(stringArg(f.Args, 1)),
		}, nil

	case domain.EventLog, domain.EventClientLog:
		room, message := decodeLog(arg(f.Args, 0))
		return domain.Log{
			ConnID:  id,
			Room:    domain.RoomID(room),
			Message: message,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownEvent, f.Event)
	}
}

func arg(args []json.RawMessage, i int) json.RawMessage {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func stringArg(args []json.RawMessage, i int) string {
	var s string
	if err := json.Unmarshal(arg(args, i), &s); err != nil {
		return ""
	}
	return s
}

// decodeLog accepts either a bare message or a {room, message} object.
func decodeLog(raw json.RawMessage) (room, message string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var p logPayload
		if err := json.Unmarshal(trimmed, &p); err == nil {
			return text(p.Room), text(p.Message)
		}
	}
	return "", text(trimmed)
}

// text renders a JSON value as a string: strings are unquoted, null and
// absent values are empty, anything else is kept as raw JSON.
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
