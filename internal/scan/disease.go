package scan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// diseaseFile is the YAML shape of a reference seed file:
//
//	enfermedades:
//	  - nombre: Mildiu
//	    descripcion: ...
//	    tratamiento: ...
type diseaseFile struct {
	Enfermedades []*Disease `yaml:"enfermedades"`
}

// LoadDiseaseFile reads a disease reference seed file.
func LoadDiseaseFile(path string) ([]*Disease, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading disease file: %w", err)
	}

	var file diseaseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing disease file: %w", err)
	}

	for _, d := range file.Enfermedades {
		if d.Nombre == "" {
			return nil, fmt.Errorf("disease entry without nombre in %s", path)
		}
	}

	return file.Enfermedades, nil
}

// SeedDiseases upserts every entry of a seed file into the reference
// collection and returns the number of entries written.
func SeedDiseases(db DB, path string) (int, error) {
	diseases, err := LoadDiseaseFile(path)
	if err != nil {
		return 0, err
	}

	for i, d := range diseases {
		if err := db.PutDisease(d); err != nil {
			return i, fmt.Errorf("seeding disease %q: %w", d.Nombre, err)
		}
	}

	return len(diseases), nil
}
