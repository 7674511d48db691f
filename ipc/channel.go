// Package ipc implements the newline-delimited JSON channel between git-lfs
// and the agent.
//
// git-lfs writes one message per line on the agent's stdin and blocks on
// reading a full line from its stdout, so every write is flushed before
// Write returns.
package ipc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pithecene-io/lfsrclone/log"
	"github.com/pithecene-io/lfsrclone/types"
)

// MessageErrorKind classifies message decoding errors.
type MessageErrorKind int

const (
	// MessageErrorSyntax indicates a line that is not valid JSON.
	MessageErrorSyntax MessageErrorKind = iota
	// MessageErrorUnknownEvent indicates an event outside the protocol.
	MessageErrorUnknownEvent
	// MessageErrorInvalid indicates a known event with missing or mistyped fields.
	MessageErrorInvalid
)

func (k MessageErrorKind) String() string {
	switch k {
	case MessageErrorSyntax:
		return "syntax"
	case MessageErrorUnknownEvent:
		return "unknown_event"
	case MessageErrorInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("MessageErrorKind(%d)", int(k))
	}
}

// MessageError represents a message decoding error.
type MessageError struct {
	Kind  MessageErrorKind
	Event types.EventType
	Line  string
	Msg   string
	Err   error
}

func (e *MessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

// IsUnknownEventError returns true if err carries an unknown-event MessageError.
func IsUnknownEventError(err error) bool {
	var msgErr *MessageError
	if errors.As(err, &msgErr) {
		return msgErr.Kind == MessageErrorUnknownEvent
	}
	return false
}

// eventProbe is used to read the discriminator before decoding the variant.
type eventProbe struct {
	Event *types.EventType `json:"event"`
}

// DecodeMessage decodes one line into a types.Message variant.
func DecodeMessage(line []byte) (types.Message, error) {
	if !json.Valid(line) {
		// Unmarshal again only to get a descriptive syntax error.
		var discard any
		err := json.Unmarshal(line, &discard)
		return nil, &MessageError{
			Kind: MessageErrorSyntax,
			Line: string(line),
			Msg:  "invalid JSON message",
			Err:  err,
		}
	}

	var probe eventProbe
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, &MessageError{
			Kind: MessageErrorInvalid,
			Line: string(line),
			Msg:  "message is not an object with a string event",
			Err:  err,
		}
	}
	if probe.Event == nil {
		return nil, &MessageError{
			Kind: MessageErrorInvalid,
			Line: string(line),
			Msg:  "message has no event field",
		}
	}

	event := *probe.Event
	switch event {
	case types.EventTypeInit:
		var msg types.InitMessage
		if err := decodeVariant(line, event, &msg); err != nil {
			return nil, err
		}
		return msg, nil

	case types.EventTypeUpload:
		var msg types.UploadMessage
		if err := decodeVariant(line, event, &msg); err != nil {
			return nil, err
		}
		if msg.Oid == "" || msg.Path == "" {
			return nil, missingFields(line, event, "oid and path are required")
		}
		return msg, nil

	case types.EventTypeDownload:
		var msg types.DownloadMessage
		if err := decodeVariant(line, event, &msg); err != nil {
			return nil, err
		}
		if msg.Oid == "" {
			return nil, missingFields(line, event, "oid is required")
		}
		return msg, nil

	case types.EventTypeTerminate:
		return types.TerminateMessage{}, nil

	default:
		return nil, &MessageError{
			Kind:  MessageErrorUnknownEvent,
			Event: event,
			Line:  string(line),
			Msg:   fmt.Sprintf("unknown event %q", event),
		}
	}
}

func decodeVariant(line []byte, event types.EventType, v any) error {
	if err := json.Unmarshal(line, v); err != nil {
		return &MessageError{
			Kind:  MessageErrorInvalid,
			Event: event,
			Line:  string(line),
			Msg:   fmt.Sprintf("failed to decode %s message", event),
			Err:   err,
		}
	}
	return nil
}

func missingFields(line []byte, event types.EventType, detail string) error {
	return &MessageError{
		Kind:  MessageErrorInvalid,
		Event: event,
		Line:  string(line),
		Msg:   fmt.Sprintf("invalid %s message: %s", event, detail),
	}
}

// Channel reads messages from git-lfs and writes responses back.
// Reads and writes are mirrored to the logger at debug level.
type Channel struct {
	reader *bufio.Reader
	logger *log.Logger

	mu     sync.Mutex
	writer *bufio.Writer
}

// NewChannel creates a channel over r (git-lfs → agent) and w (agent → git-lfs).
func NewChannel(r io.Reader, w io.Writer, logger *log.Logger) *Channel {
	return &Channel{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
		logger: logger,
	}
}

// Read blocks until a full line is available and decodes it.
//
// Errors:
//   - io.EOF: input ended before another message
//   - *MessageError: the line could not be decoded
func (c *Channel) Read() (types.Message, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			return nil, io.EOF
		}
		// Final line without a trailing newline.
	}
	line = bytes.TrimRight(line, "\r\n")

	c.logger.Debug("read msg", map[string]any{"line": string(line)})

	return DecodeMessage(line)
}

// Write serializes v as one JSON line and flushes it.
// A nil v writes the empty acknowledgement {}.
func (c *Channel) Write(v any) error {
	var data []byte
	if v == nil {
		data = []byte("{}")
	} else {
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush message: %w", err)
	}

	c.logger.Debug("write msg", map[string]any{"line": string(data)})
	return nil
}
