// Package server exposes meme sessions over HTTP. Each browser gets its own
// session, identified by a cookie and kept in memory only.
package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	messagebus "github.com/vardius/message-bus"

	"github.com/menta2k/meme-generator/pkg/fit"
	"github.com/menta2k/meme-generator/pkg/loader"
	"github.com/menta2k/meme-generator/pkg/render"
	"github.com/menta2k/meme-generator/pkg/session"
	"github.com/menta2k/meme-generator/pkg/speech"
	"github.com/menta2k/meme-generator/pkg/suggest"
)

// SessionCookie names the cookie carrying the session ID
const SessionCookie = "meme_session"

const sweepInterval = time.Minute

//go:embed static
var staticFiles embed.FS

// Options holds what the server needs besides the session store
type Options struct {
	Loader    *loader.Loader
	Suggester *suggest.Suggester
	Output    render.Options
	Bus       messagebus.MessageBus
	Log       *logger.Logger
}

// Server routes HTTP requests to sessions
type Server struct {
	store     *session.Store
	loader    *loader.Loader
	suggester *suggest.Suggester
	output    render.Options
	log       *logger.Logger
	mux       *http.ServeMux
	http      *http.Server
}

// New creates a server over store. When opts.Bus is set, session events are
// written to the log.
func New(store *session.Store, opts Options) *Server {
	if opts.Loader == nil {
		opts.Loader = loader.New()
	}
	if opts.Output.Format == "" {
		opts.Output = render.DefaultOptions()
	}

	s := &Server{
		store:     store,
		loader:    opts.Loader,
		suggester: opts.Suggester,
		output:    opts.Output,
		log:       opts.Log,
		mux:       http.NewServeMux(),
	}
	s.routes()
	if opts.Bus != nil {
		s.subscribe(opts.Bus)
	}
	return s
}

func (s *Server) routes() {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.mux.Handle("GET /", http.FileServer(http.FS(static)))

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.withSession(s.handleState))
	s.mux.HandleFunc("GET /api/canvas", s.withSession(s.handleCanvas))
	s.mux.HandleFunc("POST /api/image", s.withSession(s.handleImage))
	s.mux.HandleFunc("POST /api/generate", s.withSession(s.handleGenerate))
	s.mux.HandleFunc("POST /api/reset", s.withSession(s.handleReset))
	s.mux.HandleFunc("POST /api/volume", s.withSession(s.handleVolume))
	s.mux.HandleFunc("GET /api/voices", s.withSession(s.handleVoices))
	s.mux.HandleFunc("POST /api/voice", s.withSession(s.handleSelectVoice))
	s.mux.HandleFunc("POST /api/read", s.withSession(s.handleRead))
	s.mux.HandleFunc("POST /api/suggest", s.withSession(s.handleSuggest))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logInfo("HTTP server listening on %s", addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logInfo("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.store.Sweep(); n > 0 {
				s.logInfo("Dropped %d idle sessions", n)
			}
		}
	}
}

// subscribe logs session events
func (s *Server) subscribe(bus messagebus.MessageBus) {
	subs := map[string]interface{}{
		session.TopicImageLoaded: func(id, name string, r fit.Result) {
			s.logInfo("session %s: loaded %s at %.1fx%.1f+%.1f+%.1f", id, name, r.Width, r.Height, r.OffsetX, r.OffsetY)
		},
		session.TopicMemeGenerated: func(id string, c session.Captions) {
			s.logInfo("session %s: generated %q / %q", id, c.Top, c.Bottom)
		},
		session.TopicMemeReset: func(id string) {
			s.logInfo("session %s: reset", id)
		},
		session.TopicVolumeChanged: func(id string, v speech.Volume, icon speech.Icon) {
			s.logInfo("session %s: volume %d (icon %d)", id, int(v), int(icon))
		},
	}
	for topic, fn := range subs {
		if err := bus.Subscribe(topic, fn); err != nil {
			s.logError("failed to subscribe to %s: %v", topic, err)
		}
	}
}

func (s *Server) logInfo(format string, args ...any) {
	if s.log != nil {
		s.log.Info(format, args...)
	}
}

func (s *Server) logError(format string, args ...any) {
	if s.log != nil {
		s.log.Error(format, args...)
	}
}
