package speech

import (
	"context"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestServer starts an in-memory NATS server for testing purposes.
func startTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	natsServer := test.RunServer(&opts)

	conn, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		natsServer.Shutdown()
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, conn
}

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	lg, err := logger.New(t.TempDir(), "speech-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lg.Close() })

	return lg
}

func TestNatsEngineWithWorker(t *testing.T) {
	natsServer, conn := startTestServer(t)
	defer natsServer.Shutdown()
	defer conn.Close()

	fake := &fakeEngine{voices: testVoices()}
	worker := NewWorker(conn, "meme.speech", fake, createTestLogger(t))
	require.NoError(t, worker.Start())
	defer func() { _ = worker.Stop() }()

	engine := NewNatsEngine(conn, "meme.speech", 5*time.Second)
	ctx := context.Background()

	voices, err := engine.Voices(ctx)
	require.NoError(t, err)
	assert.Equal(t, testVoices(), voices)

	clip, err := engine.Synthesize(ctx, Utterance{Text: "TOP", VoiceID: "fr-fr-celine", Volume: 0.25})
	require.NoError(t, err)
	assert.Equal(t, "TOP", clip.Text)
	assert.Equal(t, ContentTypeWAV, clip.ContentType)
	assert.Equal(t, []byte("RIFFTOP"), clip.Audio)

	spoken := fake.utterances()
	require.Len(t, spoken, 1)
	assert.InDelta(t, 0.25, spoken[0].Volume, 1e-12)

	_, err = engine.Synthesize(ctx, Utterance{Text: "TOP", VoiceID: "missing", Volume: 1})
	assert.ErrorIs(t, err, ErrUnknownVoice)
}

func TestNatsEngineNoWorker(t *testing.T) {
	natsServer, conn := startTestServer(t)
	defer natsServer.Shutdown()
	defer conn.Close()

	engine := NewNatsEngine(conn, "meme.nobody", 200*time.Millisecond)
	_, err := engine.Voices(context.Background())
	assert.Error(t, err)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	natsServer, conn := startTestServer(t)
	defer natsServer.Shutdown()
	defer conn.Close()

	worker := NewWorker(conn, "meme.run", &fakeEngine{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
