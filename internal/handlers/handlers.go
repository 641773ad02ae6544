package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/superres/internal/pipeline"
)

// Upscaler is the part of pipeline.Upscaler the handlers use.
type Upscaler interface {
	Info() pipeline.ModelInfo
	InputSize() (width, height int)
	Upscale(img image.Image) (image.Image, time.Duration, error)
}

type Handler struct {
	upscaler Upscaler
	log      logrus.FieldLogger
}

func NewHandler(upscaler Upscaler, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		upscaler: upscaler,
		log:      log,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.upscaler.Info())
}

// Upscale reads a low resolution image from the multipart field "image" and
// answers with the reconstructed png.
func (h *Handler) Upscale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form (10MB max)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	h.log.Infof("Received file: %s, size: %d bytes", header.Filename, header.Size)

	img, format, err := image.Decode(file)
	if err != nil {
		http.Error(w, "Invalid image format", http.StatusBadRequest)
		return
	}
	h.log.Infof("Image format: %s, dimensions: %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())

	result, elapsed, err := h.upscaler.Upscale(img)
	if errors.Is(err, pipeline.ErrSizeMismatch) {
		width, height := h.upscaler.InputSize()
		http.Error(w, fmt.Sprintf("Expected a %dx%d image, got %dx%d", width, height,
			img.Bounds().Dx(), img.Bounds().Dy()), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Errorf("Upscale error: %v", err)
		http.Error(w, "Upscale failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Inference-Time-Ms", strconv.FormatFloat(float64(elapsed)/float64(time.Millisecond), 'f', 3, 64))
	if err := png.Encode(w, result); err != nil {
		h.log.Errorf("Encoding response: %v", err)
	}
}
