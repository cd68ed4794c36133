package scan

import "time"

// Placeholder texts carried into records when no reference entry applies.
const (
	// NoDisponible fills description/treatment when the disease is not
	// in the reference collection.
	NoDisponible = "No disponible"
	// NoAplica fills description/treatment when the photo contained no
	// oregano plant.
	NoAplica = "No aplica"
)

// Coordinates is a GPS position captured alongside a camera photo.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PendingImage is a captured photo waiting to be scanned. The bytes live
// in the capture storage directory; this is only the metadata, held in
// process memory and lost on restart.
type PendingImage struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	ContentType string       `json:"content_type"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	AddedAt     time.Time    `json:"added_at"`
}

// Disease is one entry of the disease reference collection, keyed by
// nombre.
type Disease struct {
	Nombre      string `json:"nombre" yaml:"nombre"`
	Descripcion string `json:"descripcion" yaml:"descripcion"`
	Tratamiento string `json:"tratamiento" yaml:"tratamiento"`
}

// ScanRecord is one accepted scan, stored under the owning user.
// Records are immutable once written; there is no update or delete.
type ScanRecord struct {
	ID          string    `json:"id"`
	Tipo        string    `json:"tipo"`
	Descripcion string    `json:"descripcion"`
	Tratamiento string    `json:"tratamiento"`
	Fecha       time.Time `json:"fecha"`
	ImagenURL   string    `json:"imagenUrl"`
	Latitud     *float64  `json:"latitud,omitempty"`
	Longitud    *float64  `json:"longitud,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
