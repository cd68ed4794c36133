package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"oregano-scan/internal/classify"
	"oregano-scan/internal/hosting"
	"oregano-scan/internal/notify"
)

// ErrNothingToScan is returned when a scan is requested with no pending
// images.
var ErrNothingToScan = errors.New("no pending images to scan")

// ErrNoImage is returned when a classification result lacks the image
// required for hosting, so nothing can be persisted.
var ErrNoImage = errors.New("classification result carries no image")

// ErrResultNotFound is returned when a save references an unknown or
// already-consumed result.
var ErrResultNotFound = errors.New("scan result not found")

// IDGenerator generates unique IDs for captures, results and records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Result is the per-item outcome of one scan batch entry: either the
// classifier response or the error that took its place, paired with the
// originating capture.
type Result struct {
	ID       string             `json:"id"`
	Image    PendingImage       `json:"image"`
	Response *classify.Response `json:"response,omitempty"`
	Err      string             `json:"error,omitempty"`
}

// Failed reports whether this item's classification failed.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Service orchestrates the scan pipeline: classify every pending image,
// then, per result and on explicit user action, upload the image, enrich
// with reference data and persist the record.
type Service struct {
	captures    *CaptureStore
	classifier  classify.Classifier
	host        hosting.Host
	db          DB
	notifier    notify.Notifier
	idGenerator IDGenerator
	timeSource  TimeSource

	mu      sync.Mutex
	results []Result
}

// NewService creates a new Service with default ID generator and time source
func NewService(captures *CaptureStore, classifier classify.Classifier, host hosting.Host, db DB, notifier notify.Notifier) *Service {
	return NewServiceWithDeps(captures, classifier, host, db, notifier, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(captures *CaptureStore, classifier classify.Classifier, host hosting.Host, db DB, notifier notify.Notifier, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		captures:    captures,
		classifier:  classifier,
		host:        host,
		db:          db,
		notifier:    notifier,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ScanPending classifies every pending image in order and retains the
// batch for per-item saves. A per-image failure is recorded in its
// Result, never aborting the batch; one result comes back per pending
// image, in capture order. The start/complete notifications are best
// effort.
func (s *Service) ScanPending(ctx context.Context) ([]Result, error) {
	pending := s.captures.List()
	if len(pending) == 0 {
		return nil, ErrNothingToScan
	}

	if err := s.notifier.ScanStarted(ctx); err != nil {
		slog.Warn("scan started notification failed", "error", err)
	}

	results := make([]Result, 0, len(pending))
	for _, img := range pending {
		res := Result{
			ID:    s.idGenerator.Generate(),
			Image: img,
		}

		data, err := s.captures.ImageData(img.ID)
		if err != nil {
			slog.Error("reading pending image failed", "image", img.ID, "error", err)
			res.Err = err.Error()
			results = append(results, res)
			continue
		}

		// Sequential on purpose: the next classification starts only
		// after this one completes.
		resp, err := s.classifier.Classify(ctx, data, img.ContentType)
		if err != nil {
			slog.Error("classification failed", "image", img.ID, "error", err)
			res.Err = err.Error()
		} else {
			res.Response = resp
		}
		results = append(results, res)
	}

	if err := s.notifier.ScanComplete(ctx); err != nil {
		slog.Warn("scan complete notification failed", "error", err)
	}

	s.mu.Lock()
	s.results = results
	s.mu.Unlock()

	return results, nil
}

// Results returns the retained batch from the last scan.
func (s *Service) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// SaveResult uploads a result's image, resolves disease type and
// reference text, and persists the record under uid. Upload failure
// aborts this item only; a persistence failure after a successful upload
// leaves the hosted image in place (there is no compensation step).
func (s *Service) SaveResult(ctx context.Context, uid, resultID string) (*ScanRecord, error) {
	res, ok := s.result(resultID)
	if !ok {
		return nil, ErrResultNotFound
	}
	if res.Failed() {
		return nil, fmt.Errorf("cannot save a failed classification: %s", res.Err)
	}
	if res.Response == nil || strings.TrimSpace(res.Response.Imagen) == "" {
		return nil, ErrNoImage
	}

	imageURL, err := s.host.Upload(ctx, res.Response.Imagen)
	if err != nil {
		return nil, fmt.Errorf("uploading image: %w", err)
	}

	tipo := classify.DiseaseType(res.Response.Enfermedades)
	descripcion, tratamiento := NoDisponible, NoDisponible
	switch {
	case strings.EqualFold(tipo, classify.SinOregano):
		descripcion, tratamiento = NoAplica, NoAplica
	case !strings.EqualFold(tipo, classify.TipoDesconocido):
		disease, err := s.db.GetDisease(tipo)
		switch {
		case err == nil:
			descripcion = disease.Descripcion
			tratamiento = disease.Tratamiento
		case errors.Is(err, ErrDiseaseNotFound):
			// Keep the placeholders.
		default:
			slog.Warn("disease lookup failed", "tipo", tipo, "error", err)
		}
	}

	rec := &ScanRecord{
		ID:          s.idGenerator.Generate(),
		Tipo:        tipo,
		Descripcion: descripcion,
		Tratamiento: tratamiento,
		Fecha:       s.timeSource.Now(),
		ImagenURL:   imageURL,
	}
	if c := res.Image.Coordinates; c != nil {
		lat, lng := c.Latitude, c.Longitude
		rec.Latitud = &lat
		rec.Longitud = &lng
	}

	if err := s.db.SaveScan(uid, rec); err != nil {
		// The upload already happened; the hosted image stays orphaned.
		slog.Error("persisting scan failed, hosted image orphaned", "url", imageURL, "error", err)
		return nil, fmt.Errorf("saving scan record: %w", err)
	}

	s.dropResult(resultID)
	if err := s.captures.Remove(res.Image.ID); err != nil && !errors.Is(err, ErrCaptureNotFound) {
		slog.Warn("removing consumed capture failed", "image", res.Image.ID, "error", err)
	}

	return rec, nil
}

// History returns the user's saved scans, most recent first.
func (s *Service) History(uid string) ([]*ScanRecord, error) {
	records, err := s.db.ListScans(uid)
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return records, nil
}

// GetDisease looks up one reference entry.
func (s *Service) GetDisease(nombre string) (*Disease, error) {
	return s.db.GetDisease(nombre)
}

// ListDiseases returns the reference collection.
func (s *Service) ListDiseases() ([]*Disease, error) {
	diseases, err := s.db.ListDiseases()
	if err != nil {
		return nil, fmt.Errorf("listing diseases: %w", err)
	}
	return diseases, nil
}

// Captures exposes the capture store to the HTTP layer.
func (s *Service) Captures() *CaptureStore {
	return s.captures
}

func (s *Service) result(id string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, true
		}
	}
	return Result{}, false
}

func (s *Service) dropResult(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.results {
		if r.ID == id {
			s.results = append(s.results[:i], s.results[i+1:]...)
			return
		}
	}
}
