package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// API implements the Classifier interface against the remote oregano
// disease prediction service. The service takes a plant photo as a
// multipart upload and answers with an annotated image plus its findings.
type API struct {
	endpoint string
	client   *http.Client
}

// NewAPI creates a new API Classifier instance
func NewAPI(endpoint string) (*API, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("classification api url is required")
	}

	return &API{
		endpoint: endpoint,
		client: &http.Client{
			// Model inference on the far side can be slow; there is no
			// retry, so give a single call plenty of room.
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Classify sends a plant image to the prediction endpoint
func (a *API) Classify(ctx context.Context, imageData []byte, contentType string) (*Response, error) {
	pngData, err := NormalizePNG(imageData, contentType)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "planta.png")
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(pngData); err != nil {
		return nil, fmt.Errorf("writing form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling classification API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classification API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// Close closes the API classifier (no-op for HTTP client)
func (a *API) Close() error {
	return nil
}
