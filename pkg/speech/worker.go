package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
)

const handleMessageTimeout = 30 * time.Second

// Worker serves an Engine to NatsEngine clients
type Worker struct {
	conn    *nats.Conn
	subject string
	engine  Engine
	log     *logger.Logger
	subs    []*nats.Subscription
}

// NewWorker creates a worker answering on subject.synthesize and subject.voices
func NewWorker(conn *nats.Conn, subject string, engine Engine, log *logger.Logger) *Worker {
	return &Worker{conn: conn, subject: subject, engine: engine, log: log}
}

// Start subscribes the worker
func (w *Worker) Start() error {
	synth, err := w.conn.Subscribe(w.subject+synthesizeSuffix, w.handleSynthesize)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject+synthesizeSuffix, err)
	}
	voices, err := w.conn.Subscribe(w.subject+voicesSuffix, w.handleVoices)
	if err != nil {
		_ = synth.Unsubscribe()
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject+voicesSuffix, err)
	}
	w.subs = []*nats.Subscription{synth, voices}

	if err := w.conn.Flush(); err != nil {
		return fmt.Errorf("failed to flush subscriptions: %w", err)
	}
	return nil
}

// Stop drains the worker's subscriptions
func (w *Worker) Stop() error {
	var errs []error
	for _, sub := range w.subs {
		if err := sub.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	w.subs = nil
	if len(errs) > 0 {
		return fmt.Errorf("failed to drain subscription: %w", errors.Join(errs...))
	}
	return nil
}

// Run starts the worker and serves until ctx is canceled
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

func (w *Worker) handleSynthesize(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	requestID := msg.Header.Get(RequestIDHeader)

	var u Utterance
	if err := json.Unmarshal(msg.Data, &u); err != nil {
		w.respond(msg, natsReply{Error: err.Error(), Code: codeInvalid})
		return
	}

	clip, err := w.engine.Synthesize(ctx, u)
	if err != nil {
		w.logError("Synthesis failed for request %s: %v", requestID, err)
		w.respond(msg, errorReply(err))
		return
	}

	w.logInfo("Synthesized %d bytes for request %s", len(clip.Audio), requestID)
	w.respond(msg, natsReply{ContentType: clip.ContentType, Audio: clip.Audio})
}

func (w *Worker) handleVoices(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	voices, err := w.engine.Voices(ctx)
	if err != nil {
		w.logError("Listing voices failed: %v", err)
		w.respond(msg, errorReply(err))
		return
	}
	w.respond(msg, natsReply{Voices: voices})
}

func (w *Worker) respond(msg *nats.Msg, reply natsReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		w.logError("Failed to marshal reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		w.logError("Failed to respond on %s: %v", msg.Subject, err)
	}
}

func (w *Worker) logInfo(format string, args ...any) {
	if w.log != nil {
		w.log.Info(format, args...)
	}
}

func (w *Worker) logError(format string, args ...any) {
	if w.log != nil {
		w.log.Error(format, args...)
	}
}

func errorReply(err error) natsReply {
	code := codeFailed
	switch {
	case errors.Is(err, ErrUnknownVoice):
		code = codeUnknownVoice
	case errors.Is(err, ErrEmptyText), errors.Is(err, ErrVolumeRange):
		code = codeInvalid
	}
	return natsReply{Error: err.Error(), Code: code}
}
