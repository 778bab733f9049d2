package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subject suffixes served by Worker and used by NatsEngine
const (
	synthesizeSuffix = ".synthesize"
	voicesSuffix     = ".voices"
)

// RequestIDHeader carries the per-request ID across NATS
const RequestIDHeader = "Request-Id"

// Reply error codes
const (
	codeUnknownVoice = "unknown_voice"
	codeInvalid      = "invalid_request"
	codeFailed       = "synthesis_failed"
)

// natsReply is the JSON body of every worker response
type natsReply struct {
	ContentType string  `json:"content_type,omitempty"`
	Audio       []byte  `json:"audio,omitempty"`
	Voices      []Voice `json:"voices,omitempty"`
	Error       string  `json:"error,omitempty"`
	Code        string  `json:"code,omitempty"`
}

func (r natsReply) err() error {
	if r.Error == "" {
		return nil
	}
	switch r.Code {
	case codeUnknownVoice:
		return fmt.Errorf("%w: %s", ErrUnknownVoice, r.Error)
	default:
		return fmt.Errorf("speech worker error (%s): %s", r.Code, r.Error)
	}
}

// NatsEngine sends synthesis requests to a Worker over NATS request/reply
type NatsEngine struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
}

// NewNatsEngine creates an engine that talks to the worker listening on subject
func NewNatsEngine(conn *nats.Conn, subject string, timeout time.Duration) *NatsEngine {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NatsEngine{conn: conn, subject: subject, timeout: timeout}
}

// Voices asks the worker for its voice list
func (e *NatsEngine) Voices(ctx context.Context) ([]Voice, error) {
	reply, err := e.request(ctx, e.subject+voicesSuffix, nil)
	if err != nil {
		return nil, err
	}
	return reply.Voices, nil
}

// Synthesize asks the worker to speak the utterance
func (e *NatsEngine) Synthesize(ctx context.Context, u Utterance) (Clip, error) {
	if err := u.Validate(); err != nil {
		return Clip{}, err
	}

	data, err := json.Marshal(u)
	if err != nil {
		return Clip{}, fmt.Errorf("failed to marshal utterance: %w", err)
	}

	reply, err := e.request(ctx, e.subject+synthesizeSuffix, data)
	if err != nil {
		return Clip{}, err
	}
	if len(reply.Audio) == 0 {
		return Clip{}, errEmptyAudio
	}

	return Clip{Text: u.Text, ContentType: reply.ContentType, Audio: reply.Audio}, nil
}

func (e *NatsEngine) request(ctx context.Context, subject string, data []byte) (natsReply, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	msg := nats.NewMsg(subject)
	msg.Header.Set(RequestIDHeader, uuid.NewString())
	msg.Data = data

	resp, err := e.conn.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return natsReply{}, fmt.Errorf("request to %s failed: %w", subject, err)
	}

	var reply natsReply
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		return natsReply{}, fmt.Errorf("failed to decode reply from %s: %w", subject, err)
	}
	if err := reply.err(); err != nil {
		return natsReply{}, err
	}
	return reply, nil
}
