package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/menta2k/meme-generator/pkg/fit"
	"github.com/menta2k/meme-generator/pkg/loader"
	"github.com/menta2k/meme-generator/pkg/render"
	"github.com/menta2k/meme-generator/pkg/session"
	"github.com/menta2k/meme-generator/pkg/speech"
	"github.com/menta2k/meme-generator/pkg/suggest"
)

const (
	maxFormMemory = 32 << 20
	// room for multipart boundaries and headers around the file
	formOverhead = 64 << 10
)

var errBadRequest = errors.New("bad request")

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the session cookie, creating a session when needed
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		sess, created, err := s.store.Get(id)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next(w, r, sess)
	}
}

type imageRequest struct {
	URL string `json:"url"`
}

type imageResponse struct {
	Fit   fit.Result       `json:"fit"`
	Image loader.ImageInfo `json:"image"`
	State session.State    `json:"state"`
}

// handleImage accepts a multipart "image" upload or a JSON {"url": ...}
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var (
		src loader.Source
		err error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req imageRequest
		if err := decodeJSON(r, &req); err != nil {
			s.respondErr(w, err)
			return
		}
		if req.URL == "" {
			s.respondErr(w, loader.ErrNoImage)
			return
		}
		src, err = s.loader.LoadFromURL(r.Context(), req.URL)
	} else {
		src, err = s.loadUpload(w, r)
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}

	result, err := sess.LoadImage(src)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	respondJSON(w, imageResponse{Fit: result, Image: loader.Info(src.Image), State: sess.State()}, http.StatusOK)
}

func (s *Server) loadUpload(w http.ResponseWriter, r *http.Request) (loader.Source, error) {
	limit := s.loader.MaxBytes()
	if limit > 0 {
		if r.ContentLength > limit+formOverhead {
			return loader.Source{}, fmt.Errorf("%w: upload exceeds %d bytes", loader.ErrTooLarge, limit)
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return loader.Source{}, fmt.Errorf("%w: upload exceeds %d bytes", loader.ErrTooLarge, limit)
		}
		return loader.Source{}, fmt.Errorf("%w: failed to parse form: %v", errBadRequest, err)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		// no file selected
		return loader.Source{}, loader.ErrNoImage
	}
	defer file.Close()

	return s.loader.LoadFromReader(header.Filename, file)
}

type generateRequest struct {
	Top    string `json:"top"`
	Bottom string `json:"bottom"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req generateRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			s.respondErr(w, err)
			return
		}
	} else {
		req.Top = r.FormValue("top")
		req.Bottom = r.FormValue("bottom")
	}

	sess.Generate(req.Top, req.Bottom)
	respondJSON(w, sess.State(), http.StatusOK)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Reset()
	respondJSON(w, sess.State(), http.StatusOK)
}

type volumeRequest struct {
	Volume *int `json:"volume"`
}

type volumeResponse struct {
	Volume   int    `json:"volume"`
	Icon     int    `json:"icon"`
	IconPath string `json:"icon_path"`
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req volumeRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decodeJSON(r, &req); err != nil {
			s.respondErr(w, err)
			return
		}
	} else {
		v, err := strconv.Atoi(r.FormValue("volume"))
		if err != nil {
			s.respondErr(w, fmt.Errorf("%w: volume must be an integer", errBadRequest))
			return
		}
		req.Volume = &v
	}
	if req.Volume == nil {
		s.respondErr(w, fmt.Errorf("%w: volume is required", errBadRequest))
		return
	}

	icon := sess.SetVolume(*req.Volume)
	respondJSON(w, volumeResponse{
		Volume:   sess.State().Volume,
		Icon:     int(icon),
		IconPath: icon.Path(),
	}, http.StatusOK)
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	opts, err := sess.Voices(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, opts, http.StatusOK)
}

type voiceRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleSelectVoice(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req voiceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, err)
		return
	}
	if err := sess.SelectVoice(r.Context(), req.ID); err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, sess.State(), http.StatusOK)
}

type readResponse struct {
	Clips []speech.Clip `json:"clips"`
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	clips, err := sess.Read(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, readResponse{Clips: clips}, http.StatusOK)
}

func (s *Server) handleCanvas(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	opts := s.output
	if name := r.URL.Query().Get("format"); name != "" {
		format, err := render.ParseFormat(name)
		if err != nil {
			s.respondErr(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		opts.Format = format
	}

	var buf bytes.Buffer
	if err := render.Encode(&buf, sess.Snapshot(), opts); err != nil {
		s.respondErr(w, err)
		return
	}

	w.Header().Set("Content-Type", opts.Format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logError("failed to write canvas: %v", err)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	respondJSON(w, sess.State(), http.StatusOK)
}

// handleSuggest asks the vision model about the current canvas
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if sess.State().Fit == nil {
		s.respondErr(w, loader.ErrNoImage)
		return
	}

	suggestion, err := s.suggester.Suggest(r.Context(), sess.Snapshot())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, suggestion, http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"status":   "ok",
		"sessions": s.store.Len(),
	}, http.StatusOK)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, loader.ErrNoImage),
		errors.Is(err, suggest.ErrNoImage),
		errors.Is(err, speech.ErrUnknownVoice),
		errors.Is(err, speech.ErrEmptyText),
		errors.Is(err, speech.ErrVolumeRange):
		return http.StatusBadRequest
	case errors.Is(err, loader.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, loader.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, fit.ErrInvalidDimension):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrReadDisabled):
		return http.StatusConflict
	case errors.Is(err, speech.ErrUnavailable),
		errors.Is(err, suggest.ErrNoClient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logError("request failed: %v", err)
	}
	respondError(w, err.Error(), status)
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
