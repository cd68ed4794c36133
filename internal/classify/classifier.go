package classify

import "context"

// Response is the structured result of one classification call.
// The remote model returns an annotated copy of the image (base64,
// possibly with a data-URI prefix) and an ordered list of free-text
// disease findings.
type Response struct {
	Imagen       string   `json:"imagen"`
	Enfermedades []string `json:"enfermedades"`
}

// Classifier defines the interface for disease classification backends
type Classifier interface {
	// Classify analyzes a plant image and returns the model findings
	Classify(ctx context.Context, imageData []byte, contentType string) (*Response, error)
	// Close closes the classifier and releases resources
	Close() error
}
