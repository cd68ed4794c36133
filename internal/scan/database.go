package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	usersBucketName   = "users"
	scansBucketName   = "escaneos"
	diseaseBucketName = "enfermedad"
)

// ErrUnauthenticated is returned by record-store operations that were
// invoked without a user identity.
var ErrUnauthenticated = errors.New("no authenticated user")

// ErrDiseaseNotFound is returned when the reference collection has no
// entry for a disease name.
var ErrDiseaseNotFound = errors.New("disease not found")

// DB defines the interface for scan-record and disease-reference storage
type DB interface {
	// SaveScan appends an immutable scan record under the user's
	// namespace, assigning CreatedAt
	SaveScan(uid string, rec *ScanRecord) error

	// ListScans returns all records for the user, most recent first
	ListScans(uid string) ([]*ScanRecord, error)

	// GetDisease looks up a reference entry by exact name
	GetDisease(nombre string) (*Disease, error)

	// PutDisease upserts a reference entry
	PutDisease(d *Disease) error

	// ListDiseases returns the whole reference collection
	ListDiseases() ([]*Disease, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Scan records live in
// nested buckets users/{uid}/escaneos; the disease reference is a flat
// bucket keyed by nombre.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(usersBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(diseaseBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveScan appends a scan record to the user's collection
func (b *BoltDB) SaveScan(uid string, rec *ScanRecord) error {
	if uid == "" {
		return ErrUnauthenticated
	}
	if rec.ImagenURL == "" {
		return fmt.Errorf("scan record requires a hosted image url")
	}
	if rec.Tipo == "" {
		return fmt.Errorf("scan record requires a disease type")
	}

	rec.CreatedAt = time.Now()

	return b.db.Update(func(tx *bbolt.Tx) error {
		user, err := tx.Bucket([]byte(usersBucketName)).CreateBucketIfNotExists([]byte(uid))
		if err != nil {
			return fmt.Errorf("creating user bucket: %w", err)
		}
		scans, err := user.CreateBucketIfNotExists([]byte(scansBucketName))
		if err != nil {
			return fmt.Errorf("creating scans bucket: %w", err)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling scan record: %w", err)
		}
		return scans.Put([]byte(rec.ID), data)
	})
}

// ListScans returns the user's scan records sorted by Fecha descending
func (b *BoltDB) ListScans(uid string) ([]*ScanRecord, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}

	records := make([]*ScanRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		user := tx.Bucket([]byte(usersBucketName)).Bucket([]byte(uid))
		if user == nil {
			return nil
		}
		scans := user.Bucket([]byte(scansBucketName))
		if scans == nil {
			return nil
		}
		return scans.ForEach(func(k, v []byte) error {
			var rec ScanRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshaling scan record: %w", err)
			}
			records = append(records, &rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Fecha.Equal(records[j].Fecha) {
			return records[i].Fecha.After(records[j].Fecha)
		}
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	return records, nil
}

// GetDisease looks up a disease by exact, case-sensitive name
func (b *BoltDB) GetDisease(nombre string) (*Disease, error) {
	var disease *Disease
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(diseaseBucketName)).Get([]byte(nombre))
		if data == nil {
			return ErrDiseaseNotFound
		}
		return json.Unmarshal(data, &disease)
	})
	if err != nil {
		return nil, err
	}
	return disease, nil
}

// PutDisease upserts a disease reference entry
func (b *BoltDB) PutDisease(d *Disease) error {
	if d.Nombre == "" {
		return fmt.Errorf("disease entry requires a nombre")
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshaling disease: %w", err)
		}
		return tx.Bucket([]byte(diseaseBucketName)).Put([]byte(d.Nombre), data)
	})
}

// ListDiseases returns all disease reference entries
func (b *BoltDB) ListDiseases() ([]*Disease, error) {
	diseases := make([]*Disease, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(diseaseBucketName)).ForEach(func(k, v []byte) error {
			var d Disease
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("unmarshaling disease: %w", err)
			}
			diseases = append(diseases, &d)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return diseases, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
