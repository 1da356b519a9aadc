package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cjeanneret/photocap/internal/debug"
	"github.com/cjeanneret/photocap/internal/gallery"
	"github.com/cjeanneret/photocap/internal/hw/camera"
	"github.com/cjeanneret/photocap/internal/logic/capture"
	"github.com/cjeanneret/photocap/internal/storage"
)

// MaxRequestBytes caps the body of POST /photo.
const MaxRequestBytes = 1 << 20

// CaptureService takes photos with the server's camera session.
type CaptureService interface {
	TakePhoto(ctx context.Context, req capture.Request) (capture.Result, error)
	InFlight() int64
}

// CaptureLister lists the stills known to the gallery.
type CaptureLister interface {
	List() ([]gallery.Entry, error)
}

// FormConfig holds default values for the capture form (from config).
type FormConfig struct {
	Flash              string `json:"flash"`
	EnableShutterSound bool   `json:"enable_shutter_sound"`
	ResolveEarly       bool   `json:"resolve_early"`
	HasFlash           bool   `json:"has_flash"`
	Album              string `json:"album"`
	TimeoutMs          int    `json:"timeout_ms"`
}

// PhotoRequest is the JSON body of POST /photo. Missing fields take the
// form defaults.
type PhotoRequest struct {
	Flash              string `json:"flash"`
	EnableShutterSound bool   `json:"enable_shutter_sound"`
	ResolveEarly       bool   `json:"resolve_early"`
}

// ToCapture converts the body to a capture request.
func (p PhotoRequest) ToCapture() (capture.Request, error) {
	flash, err := capture.ParseFlashMode(p.Flash)
	if err != nil {
		return capture.Request{}, err
	}
	return capture.Request{
		Flash:              flash,
		EnableShutterSound: p.EnableShutterSound,
		ResolveEarly:       p.ResolveEarly,
	}, nil
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	Capture      CaptureService
	Gallery      CaptureLister
	FormDefaults FormConfig
	staticFS     fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If svc is nil, POST /photo returns 503 Service Unavailable.
func NewHandlers(broadcaster *StatusBroadcaster, svc CaptureService, lister CaptureLister, formDefaults FormConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		Capture:      svc,
		Gallery:      lister,
		FormDefaults: formDefaults,
		staticFS:     staticFS,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.Errorf("web: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// StatusFor maps a capture error onto an HTTP status code.
func StatusFor(err error) int {
	var (
		captureErr *camera.CaptureError
		persistErr *capture.PersistError
	)
	switch {
	case errors.Is(err, capture.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrPhotoNotEnabled), errors.Is(err, capture.ErrFlashUnavailable):
		return http.StatusConflict
	case errors.Is(err, capture.ErrCameraNotReady), errors.Is(err, capture.ErrClosed),
		errors.Is(err, storage.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrCancelled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &captureErr):
		return http.StatusBadGateway
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// HandleConfig returns the form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.FormDefaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandlePhoto handles POST /photo: it takes one photo and answers with the
// Photo Result once the capture settled.
func (h *Handlers) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body := PhotoRequest{
		Flash:              h.FormDefaults.Flash,
		EnableShutterSound: h.FormDefaults.EnableShutterSound,
		ResolveEarly:       h.FormDefaults.ResolveEarly,
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	req, err := body.ToCapture()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if h.Capture == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("capture not configured"))
		return
	}

	ctx := r.Context()
	if h.FormDefaults.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(h.FormDefaults.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	res, err := h.Capture.TakePhoto(ctx, req)
	if err != nil {
		status := StatusFor(err)
		debug.Errorf("web: photo failed (%d): %v", status, err)
		h.Broadcaster.Broadcast("error", "Capture failed: "+err.Error())
		writeError(w, status, err)
		return
	}
	h.Broadcaster.Broadcast("info", "Photo saved: "+res.Path)
	writeJSON(w, http.StatusOK, res)
}

// HandleInFlight handles GET /inflight.
func (h *Handlers) HandleInFlight(w http.ResponseWriter, r *http.Request) {
	var n int64
	if h.Capture != nil {
		n = h.Capture.InFlight()
	}
	writeJSON(w, http.StatusOK, map[string]int64{"inflight": n})
}

// HandleCaptures handles GET /captures.
func (h *Handlers) HandleCaptures(w http.ResponseWriter, r *http.Request) {
	entries, err := h.listCaptures()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleCapture handles GET /captures/{id}.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	entries, err := h.listCaptures()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	for _, e := range entries {
		if e.ID == id {
			writeJSON(w, http.StatusOK, e)
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("capture %q not found", id))
}

func (h *Handlers) listCaptures() ([]gallery.Entry, error) {
	if h.Gallery == nil {
		return []gallery.Entry{}, nil
	}
	entries, err := h.Gallery.List()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []gallery.Entry{}
	}
	return entries, nil
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
