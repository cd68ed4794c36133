package scan

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"oregano-scan/internal/hosting"
)

// maxUploadSize bounds multipart parsing; high-resolution phone photos
// can be large.
const maxUploadSize = int64(50 << 20) // 50MB

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, _ string) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleAddCaptures adds pending images. One file with lat/lng form
// values is the camera path; several files (coordinates ignored) is the
// gallery path. Unparseable coordinates are dropped silently, never
// rejecting the capture.
func (s *Server) handleAddCaptures(w http.ResponseWriter, r *http.Request, _ string) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			msg = "File is too large. Maximum size is 50MB."
		}
		jsonError(w, msg, http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}

	var coords *Coordinates
	if len(files) == 1 {
		coords = parseCoordinates(r.FormValue("lat"), r.FormValue("lng"))
	}

	items := make([]CaptureItem, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			slog.Error("Error opening uploaded file", "filename", header.Filename, "error", err)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("Error reading file data", "filename", header.Filename, "error", err)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		items = append(items, CaptureItem{
			Data:        data,
			ContentType: detectContentType(header.Header.Get("Content-Type"), header.Filename),
		})
	}

	var added []PendingImage
	var err error
	if len(items) == 1 {
		var img PendingImage
		img, err = s.service.Captures().Add(items[0], coords)
		added = []PendingImage{img}
	} else {
		added, err = s.service.Captures().AddBatch(items)
	}
	if err != nil {
		slog.Error("Error adding captures", "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, added)
}

// handleListCaptures returns the pending images
func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request, _ string) {
	writeJSON(w, http.StatusOK, s.service.Captures().List())
}

// handleRemoveCapture removes one pending image
func (s *Server) handleRemoveCapture(w http.ResponseWriter, r *http.Request, _ string) {
	id := r.PathValue("id")
	if id == "" {
		jsonError(w, "Capture ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.Captures().Remove(id); err != nil {
		if errors.Is(err, ErrCaptureNotFound) {
			jsonError(w, "Capture not found", http.StatusNotFound)
			return
		}
		slog.Error("Error removing capture", "id", id, "error", err)
		jsonError(w, "Error removing capture", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleScan runs the batch pipeline over all pending images
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request, _ string) {
	results, err := s.service.ScanPending(r.Context())
	if err != nil {
		if errors.Is(err, ErrNothingToScan) {
			jsonError(w, "No hay imagenes para escanear", http.StatusConflict)
			return
		}
		slog.Error("Error scanning", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleListResults returns the retained batch from the last scan
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request, _ string) {
	writeJSON(w, http.StatusOK, s.service.Results())
}

// handleSaveResult persists one result for the authenticated user
func (s *Server) handleSaveResult(w http.ResponseWriter, r *http.Request, uid string) {
	id := r.PathValue("id")
	if id == "" {
		jsonError(w, "Result ID required", http.StatusBadRequest)
		return
	}

	rec, err := s.service.SaveResult(r.Context(), uid, id)
	if err != nil {
		slog.Error("Error saving result", "id", id, "error", err)
		var uploadErr *hosting.UploadError
		switch {
		case errors.Is(err, ErrResultNotFound):
			jsonError(w, "Result not found", http.StatusNotFound)
		case errors.Is(err, ErrNoImage):
			jsonError(w, "El resultado no contiene imagen para guardar", http.StatusUnprocessableEntity)
		case errors.Is(err, ErrUnauthenticated):
			jsonError(w, "Unauthorized", http.StatusUnauthorized)
		case errors.As(err, &uploadErr):
			jsonError(w, uploadErr.Error(), http.StatusBadGateway)
		default:
			jsonError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// handleHistory returns the user's saved scans, newest first
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, uid string) {
	records, err := s.service.History(uid)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			jsonError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		slog.Error("Error listing scans", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// handleListDiseases returns the disease reference collection
func (s *Server) handleListDiseases(w http.ResponseWriter, r *http.Request, _ string) {
	diseases, err := s.service.ListDiseases()
	if err != nil {
		slog.Error("Error listing diseases", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, diseases)
}

// handleGetDisease returns one reference entry by exact name
func (s *Server) handleGetDisease(w http.ResponseWriter, r *http.Request, _ string) {
	nombre := r.PathValue("nombre")
	if nombre == "" {
		jsonError(w, "Disease name required", http.StatusBadRequest)
		return
	}
	disease, err := s.service.GetDisease(nombre)
	if err != nil {
		if errors.Is(err, ErrDiseaseNotFound) {
			jsonError(w, "Disease not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting disease", "nombre", nombre, "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, disease)
}

// parseCoordinates turns lat/lng form values into Coordinates. Anything
// missing or malformed yields nil.
func parseCoordinates(lat, lng string) *Coordinates {
	if lat == "" || lng == "" {
		return nil
	}
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil
	}
	lngF, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil
	}
	return &Coordinates{Latitude: latF, Longitude: lngF}
}

// detectContentType falls back to the file extension when the part
// header carries no content type
func detectContentType(headerType, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(headerType))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
