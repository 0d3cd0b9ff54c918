package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Envelope is the wire form of one message: a JSON object on its own line.
//
//	{"type":"SkipTo","data":{"tick":1200}}
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrUnknownType is returned when an envelope names a message type this
// side does not know.
var ErrUnknownType = errors.New("unknown message type")

// DecodeError is a well-framed envelope whose contents could not be turned
// into a message. The stream it was read from is still in sync.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Type, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is (or wraps) a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func wrap(typ string, msg any) (Envelope, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", typ, err)
	}
	if bytes.Equal(data, []byte("{}")) {
		data = nil
	}
	return Envelope{Type: typ, Data: data}, nil
}

// EncodeCommand wraps a command in its envelope.
func EncodeCommand(cmd Command) (Envelope, error) {
	return wrap(cmd.commandType(), cmd)
}

// EncodeEvent wraps an event in its envelope.
func EncodeEvent(ev Event) (Envelope, error) {
	return wrap(ev.eventType(), ev)
}

func unwrap[T any](env Envelope) (T, error) {
	var v T
	if len(env.Data) == 0 {
		return v, nil
	}
	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, &DecodeError{Type: env.Type, Err: err}
	}
	return v, nil
}

// DecodeCommand unwraps a command envelope.
func DecodeCommand(env Envelope) (Command, error) {
	var (
		msg Command
		err error
	)
	switch env.Type {
	case "PlayFile":
		msg, err = unwrap[PlayFile](env)
	case "Stop":
		msg, err = unwrap[Stop](env)
	case "SkipTo":
		msg, err = unwrap[SkipTo](env)
	case "PauseAt":
		msg, err = unwrap[PauseAt](env)
	case "AdvanceFrame":
		msg, err = unwrap[AdvanceFrame](env)
	case "TeleportToTick":
		msg, err = unwrap[TeleportToTick](env)
	case "SetTraceOptions":
		msg, err = unwrap[SetTraceOptions](env)
	default:
		return nil, &DecodeError{Type: env.Type, Err: ErrUnknownType}
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeEvent unwraps an event envelope.
func DecodeEvent(env Envelope) (Event, error) {
	var (
		msg Event
		err error
	)
	switch env.Type {
	case "PlaybackStateChanged":
		msg, err = unwrap[PlaybackStateChanged](env)
	case "CurrentTick":
		msg, err = unwrap[CurrentTick](env)
	case "ParseErrors":
		msg, err = unwrap[ParseErrors](env)
	case "LiveTransform":
		msg, err = unwrap[LiveTransform](env)
	case "PuzzleUnlocked":
		msg, err = unwrap[PuzzleUnlocked](env)
	default:
		return nil, &DecodeError{Type: env.Type, Err: ErrUnknownType}
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Conn reads and writes envelopes on a byte stream.
// Writes are not synchronised; callers serialise them.
type Conn struct {
	enc *json.Encoder
	dec *json.Decoder
}

// NewConn wraps rw. json.Encoder terminates every value with a newline,
// which is the framing.
func NewConn(rw io.ReadWriter) *Conn {
	enc := json.NewEncoder(rw)
	enc.SetEscapeHTML(false)
	return &Conn{enc: enc, dec: json.NewDecoder(rw)}
}

func (c *Conn) write(env Envelope, err error) error {
	if err != nil {
		return err
	}
	return c.enc.Encode(env)
}

// WriteCommand sends one command.
func (c *Conn) WriteCommand(cmd Command) error { return c.write(EncodeCommand(cmd)) }

// WriteEvent sends one event.
func (c *Conn) WriteEvent(ev Event) error { return c.write(EncodeEvent(ev)) }

func (c *Conn) read() (Envelope, error) {
	var env Envelope
	err := c.dec.Decode(&env)
	return env, err
}

// ReadCommand blocks for the next command. A *DecodeError leaves the stream
// in sync; any other error ends it.
func (c *Conn) ReadCommand() (Command, error) {
	env, err := c.read()
	if err != nil {
		return nil, err
	}
	return DecodeCommand(env)
}

// ReadEvent blocks for the next event, with the same error rules as
// ReadCommand.
func (c *Conn) ReadEvent() (Event, error) {
	env, err := c.read()
	if err != nil {
		return nil, err
	}
	return DecodeEvent(env)
}
