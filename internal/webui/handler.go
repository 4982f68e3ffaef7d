package webui

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/mzyy94/ebotlcd/internal/config"
	"github.com/mzyy94/ebotlcd/internal/display"
	"github.com/mzyy94/ebotlcd/internal/joint"
	"github.com/mzyy94/ebotlcd/internal/pattern"
)

//go:embed static
var staticFS embed.FS

// maxImageBytes bounds the body of PUT /api/frame.
const maxImageBytes = 16 << 20

type handler struct {
	disp       *display.Display
	canvas     *display.Canvas
	settings   *config.Store
	deviceName string
}

// NewHandler creates an HTTP handler for the control API and Web UI.
func NewHandler(d *display.Display, canvas *display.Canvas, settings *config.Store, deviceName string) http.Handler {
	h := &handler{disp: d, canvas: canvas, settings: settings, deviceName: deviceName}
	mux := http.NewServeMux()
	staticContent, _ := fs.Sub(staticFS, "static")
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("GET /api/joint", h.handleGetJoint)
	mux.HandleFunc("PUT /api/joint", h.handlePutJoint)
	mux.HandleFunc("PUT /api/pattern", h.handlePutPattern)
	mux.HandleFunc("PUT /api/frame", h.handlePutFrame)
	mux.HandleFunc("GET /api/settings", h.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", h.handlePutSettings)
	mux.Handle("GET /", http.FileServer(http.FS(staticContent)))
	return mux
}

type statusResponse struct {
	Device    string                 `json:"device"`
	Profile   profileInfo            `json:"profile"`
	Display   display.StatusSnapshot `json:"display"`
	Pattern   string                 `json:"pattern"`
	Patterns  []string               `json:"patterns"`
	Joint     joint.Config           `json:"joint"`
	UpdatedAt string                 `json:"updatedAt"`
}

type profileInfo struct {
	Name      string `json:"name"`
	VendorID  string `json:"vendorId"`
	ProductID string `json:"productId"`
	Interface int    `json:"interface"`
	Endpoint  string `json:"endpoint"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Packets   int    `json:"packetsPerFrame"`
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	p := h.disp.Profile()
	s := h.settings.Get()
	current := s.Pattern
	if s.ImagePath != "" {
		current = "image"
	}
	resp := statusResponse{
		Device: h.deviceName,
		Profile: profileInfo{
			Name:      p.Name,
			VendorID:  fmt.Sprintf("%04x", p.VendorID),
			ProductID: fmt.Sprintf("%04x", p.ProductID),
			Interface: p.Interface,
			Endpoint:  fmt.Sprintf("0x%02x", p.Endpoint),
			Width:     p.Width,
			Height:    p.Height,
			Packets:   p.PacketsPerFrame(),
		},
		Display:   h.disp.Status(),
		Pattern:   current,
		Patterns:  pattern.Names(),
		Joint:     h.disp.Joints().Get(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, resp)
}

// --- Joint API ---

func (h *handler) handleGetJoint(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.disp.Joints().Get())
}

func (h *handler) handlePutJoint(w http.ResponseWriter, r *http.Request) {
	var cfg joint.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cfg = h.disp.Joints().Set(cfg)
	if err := h.settings.UpdateJoint(cfg); err != nil {
		slog.Warn("settings save failed", "err", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	slog.Info("joints updated", "enable", cfg.Enable, "angles", cfg.Angles)
	writeJSON(w, cfg)
}

// --- Frame sources ---

type patternRequest struct {
	Name string `json:"name"`
}

func (h *handler) handlePutPattern(w http.ResponseWriter, r *http.Request) {
	var req patternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s := h.settings.Get()
	s.Pattern, s.ImagePath = req.Name, ""
	if !h.apply(w, s) {
		return
	}
	writeJSON(w, s)
}

func (h *handler) handlePutFrame(w http.ResponseWriter, r *http.Request) {
	p := h.disp.Profile()
	pix, err := pattern.Decode(http.MaxBytesReader(w, r.Body, maxImageBytes), p.Width, p.Height)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.canvas.Set(pix); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("frame uploaded", "type", r.Header.Get("Content-Type"), "bytes", r.ContentLength)
	w.WriteHeader(http.StatusNoContent)
}

// --- Settings API ---

func (h *handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.settings.Get())
}

func (h *handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	s := h.settings.Get()
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if s.FPS <= 0 {
		http.Error(w, "fps must be positive", http.StatusBadRequest)
		return
	}
	s.Joint = h.disp.Joints().Set(s.Joint)
	if !h.apply(w, s) {
		return
	}
	writeJSON(w, s)
}

// apply renders the frame source named by s onto the canvas and persists s.
// It writes the error response itself and reports whether it succeeded.
func (h *handler) apply(w http.ResponseWriter, s config.Settings) bool {
	p := h.disp.Profile()
	pix, err := pattern.Resolve(s.Pattern, s.ImagePath, p.Width, p.Height)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pattern.ErrUnknownPattern) || errors.Is(err, fs.ErrNotExist) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return false
	}
	if err := h.canvas.Set(pix); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return false
	}
	if err := h.settings.Update(s); err != nil {
		slog.Warn("settings save failed", "err", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return false
	}
	slog.Info("frame source changed", "pattern", s.Pattern, "image", s.ImagePath)
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
