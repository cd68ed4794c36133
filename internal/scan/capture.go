package scan

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrCaptureNotFound is returned when a pending image id is unknown.
var ErrCaptureNotFound = errors.New("pending image not found")

// CaptureItem is one image handed to the capture store.
type CaptureItem struct {
	Data        []byte
	ContentType string
}

// CaptureStore owns the ordered list of pending images. Metadata is held
// in memory only; the bytes go through Storage. Mutations fire the
// subscribed change listeners synchronously, so a presentation layer can
// refresh without polling.
type CaptureStore struct {
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource

	mu        sync.Mutex
	pending   []PendingImage
	listeners []func()
}

// NewCaptureStore creates a CaptureStore with default ID generator and clock
func NewCaptureStore(storage Storage) *CaptureStore {
	return NewCaptureStoreWithDeps(storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewCaptureStoreWithDeps creates a CaptureStore with custom dependencies for testing
func NewCaptureStoreWithDeps(storage Storage, idGen IDGenerator, timeSrc TimeSource) *CaptureStore {
	return &CaptureStore{
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Add appends one captured photo, the camera path. Coordinates are best
// effort: callers pass nil when positioning failed or was denied, and
// the capture is accepted all the same.
func (c *CaptureStore) Add(item CaptureItem, coords *Coordinates) (PendingImage, error) {
	if len(item.Data) == 0 {
		return PendingImage{}, fmt.Errorf("empty image data")
	}

	id := c.idGenerator.Generate()
	filename, err := c.storage.Save(id+extensionFor(item.ContentType), item.Data)
	if err != nil {
		return PendingImage{}, fmt.Errorf("saving captured image: %w", err)
	}

	img := PendingImage{
		ID:          id,
		Filename:    filename,
		ContentType: item.ContentType,
		Coordinates: coords,
		AddedAt:     c.timeSource.Now(),
	}

	c.mu.Lock()
	c.pending = append(c.pending, img)
	c.mu.Unlock()
	c.notify()

	return img, nil
}

// AddBatch appends several photos at once, the gallery path. Gallery
// picks never carry coordinates.
func (c *CaptureStore) AddBatch(items []CaptureItem) ([]PendingImage, error) {
	added := make([]PendingImage, 0, len(items))
	for _, item := range items {
		img, err := c.Add(item, nil)
		if err != nil {
			return added, err
		}
		added = append(added, img)
	}
	return added, nil
}

// Remove deletes one pending image and its stored file.
func (c *CaptureStore) Remove(id string) error {
	c.mu.Lock()
	idx := -1
	for i, img := range c.pending {
		if img.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		c.mu.Unlock()
		return ErrCaptureNotFound
	}
	img := c.pending[idx]
	c.pending = append(c.pending[:idx], c.pending[idx+1:]...)
	c.mu.Unlock()
	c.notify()

	if err := c.storage.Delete(img.Filename); err != nil {
		return fmt.Errorf("deleting stored image: %w", err)
	}
	return nil
}

// List returns a snapshot of the pending images in insertion order.
func (c *CaptureStore) List() []PendingImage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PendingImage, len(c.pending))
	copy(out, c.pending)
	return out
}

// ImageData reads the stored bytes for one pending image.
func (c *CaptureStore) ImageData(id string) ([]byte, error) {
	c.mu.Lock()
	var filename string
	for _, img := range c.pending {
		if img.ID == id {
			filename = img.Filename
			break
		}
	}
	c.mu.Unlock()

	if filename == "" {
		return nil, ErrCaptureNotFound
	}
	return c.storage.Get(filename)
}

// Subscribe registers a listener invoked synchronously after every
// mutation.
func (c *CaptureStore) Subscribe(fn func()) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *CaptureStore) notify() {
	c.mu.Lock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/heic", "image/heif":
		return ".heic"
	case "application/pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}
