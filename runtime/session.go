package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pithecene-io/lfsrclone/ipc"
	"github.com/pithecene-io/lfsrclone/log"
	"github.com/pithecene-io/lfsrclone/metrics"
	"github.com/pithecene-io/lfsrclone/types"
)

// MessageChannel is the transport between git-lfs and the session.
// *ipc.Channel implements it.
type MessageChannel interface {
	Read() (types.Message, error)
	Write(v any) error
}

// ProtocolError is returned when git-lfs sends a message that is not valid
// in the current session state. It is fatal.
type ProtocolError struct {
	// State is where the violation happened: "init" or "loop".
	State string
	// Event is the offending event, empty when the event was not recognized.
	Event types.EventType
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol violation during %s: %v", e.State, e.Err)
	}
	return fmt.Sprintf("protocol violation during %s: unexpected event %q", e.State, e.Event)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError returns true if err is or wraps a *ProtocolError.
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}

// Session drives one git-lfs transfer session: the init handshake followed
// by sequential upload/download actions until terminate.
type Session struct {
	config    *SessionConfig
	channel   MessageChannel
	logger    *log.Logger
	collector *metrics.Collector
	executor  *ActionExecutor
	actions   int
}

// NewSession creates a session over channel.
func NewSession(config *SessionConfig, channel MessageChannel, logger *log.Logger, collector *metrics.Collector) *Session {
	return &Session{
		config:    config,
		channel:   channel,
		logger:    logger,
		collector: collector,
		executor:  NewActionExecutor(config, channel, logger, collector),
	}
}

// Actions returns the number of actions completed so far.
func (s *Session) Actions() int {
	return s.actions
}

// Run performs the handshake and processes messages until terminate.
// It returns nil on terminate. Once ctx is done no further message is read
// and the context error is returned wrapped. Protocol violations are logged at critical
// level and returned as *ProtocolError; read and write failures are returned
// wrapped.
func (s *Session) Run(ctx context.Context) error {
	if err := s.handshake(); err != nil {
		return err
	}
	return s.loop(ctx)
}

func (s *Session) handshake() error {
	msg, err := s.channel.Read()
	if err != nil {
		if ipc.IsUnknownEventError(err) {
			return s.violation("init", "", err)
		}
		return fmt.Errorf("failed to read init message: %w", err)
	}

	initMsg, ok := msg.(types.InitMessage)
	if !ok {
		return s.violation("init", msg.Event(), nil)
	}

	s.logger.Info("initiated", map[string]any{
		"operation": initMsg.Operation,
		"remote":    s.config.Remote,
		"cwd":       workingDir(),
	})

	if err := s.channel.Write(nil); err != nil {
		return fmt.Errorf("failed to acknowledge init: %w", err)
	}
	return nil
}

func (s *Session) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Error("session cancelled", map[string]any{
				"action": s.actions,
				"error":  err.Error(),
			})
			return fmt.Errorf("session cancelled: %w", err)
		}

		s.logger.Info("loop", map[string]any{"action": s.actions})

		msg, err := s.channel.Read()
		if err != nil {
			if ipc.IsUnknownEventError(err) {
				return s.violation("loop", "", err)
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		switch event := msg.Event(); {
		case event.IsAction():
			complete, err := s.executor.Execute(ctx, msg)
			if err != nil {
				return fmt.Errorf("action %d failed: %w", s.actions, err)
			}
			s.logger.Debug("action complete", map[string]any{
				"action": s.actions,
				"event":  event,
				"oid":    complete.Oid,
				"failed": complete.Failed(),
			})

		case event == types.EventTypeTerminate:
			s.logger.Info("termination called", s.collector.Snapshot().Fields())
			return nil

		default:
			return s.violation("loop", event, nil)
		}

		s.actions++
	}
}

func (s *Session) violation(state string, event types.EventType, err error) error {
	protoErr := &ProtocolError{State: state, Event: event, Err: err}
	s.logger.Critical("incorrect message", map[string]any{
		"state": state,
		"event": event,
		"error": protoErr.Error(),
	})
	return protoErr
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}
