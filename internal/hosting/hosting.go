// Package hosting uploads accepted scan images to a public image host so
// that persisted records carry a durable URL instead of a device-local
// path.
package hosting

import "context"

// Host defines the interface for image hosting operations
type Host interface {
	// Upload pushes a base64-encoded image (with or without a data-URI
	// prefix) to the host and returns its public URL.
	Upload(ctx context.Context, base64Image string) (string, error)
}

// UploadError is an application-level failure reported by the hosting
// provider, as opposed to a transport or HTTP failure.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	if e.Message == "" {
		return "image host rejected the upload"
	}
	return "image host rejected the upload: " + e.Message
}
