// Package streaming provides the bridge between an asynchronous
// fragment source and one parser instance, forwarding emitted
// messages over channels.
package streaming

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stepstream/stepstream/pkg/stepstream"
	"github.com/stepstream/stepstream/pkg/stepstream/ports"
)

// Dependencies groups all external dependencies for the streaming
// service.
type Dependencies struct {
	Source ports.FragmentSource
	Parser *stepstream.Parser

	// Logger is optional; a silent logger is used when nil.
	Logger *logrus.Logger
}

// Service pumps fragments from a source through one parser instance.
// It serializes all parser calls: fragments are parsed in arrival
// order, every produced message is forwarded immediately and in
// order, and Finalize runs exactly once after the source is
// exhausted. The service never reorders or buffers messages beyond
// what the parser itself returns.
type Service struct {
	source    ports.FragmentSource
	parser    *stepstream.Parser
	sessionID string
	log       *logrus.Entry
}

// NewService creates a streaming service around one parser instance.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	sessionID := uuid.NewString()

	return &Service{
		source:    deps.Source,
		parser:    deps.Parser,
		sessionID: sessionID,
		log:       logger.WithField("session_id", sessionID),
	}
}

// SessionID identifies this stream in logs and diagnostics.
func (s *Service) SessionID() string {
	return s.sessionID
}

// Run starts pumping in a goroutine and returns the message and error
// channels. Both close when the stream ends; at most one error is
// sent. Cancel ctx to stop early; buffered parser content is then
// discarded, matching the caller-driven cancellation model.
func (s *Service) Run(
	ctx context.Context,
) (<-chan stepstream.Message, <-chan error) {
	msgCh := make(chan stepstream.Message)
	errCh := make(chan error, 1)

	go func() {
		defer close(msgCh)
		defer close(errCh)

		if err := s.pump(ctx, msgCh); err != nil {
			errCh <- err
		}
	}()

	return msgCh, errCh
}

// pump runs the fragment loop until the source is exhausted.
func (s *Service) pump(
	ctx context.Context,
	msgCh chan<- stepstream.Message,
) error {
	s.log.Debug("stream started")

	for {
		fragment, err := s.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return s.finish(ctx, msgCh)
		}
		if err != nil {
			return err
		}

		for _, msg := range s.parser.ParseChunk(fragment) {
			if !send(ctx, msgCh, msg) {
				return ctx.Err()
			}
		}
	}
}

// finish forwards the final truncated message, if any.
func (s *Service) finish(
	ctx context.Context,
	msgCh chan<- stepstream.Message,
) error {
	if final := s.parser.Finalize(); final != nil {
		if !send(ctx, msgCh, *final) {
			return ctx.Err()
		}
	}

	s.log.Debug("stream finished")

	return nil
}

// send delivers one message unless ctx is done first.
func send(
	ctx context.Context,
	msgCh chan<- stepstream.Message,
	msg stepstream.Message,
) bool {
	select {
	case msgCh <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}
