package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oregano-scan/internal/classify"
)

// ImgBB implements the Host interface against the imgbb.com upload API.
type ImgBB struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewImgBB creates a new ImgBB Host instance
func NewImgBB(endpoint, apiKey string) (*ImgBB, error) {
	if endpoint == "" {
		endpoint = "https://api.imgbb.com/1/upload"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("imgbb api key is required")
	}

	return &ImgBB{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// imgbbResponse is the provider's envelope. On failure either the
// error object or a bare status line is present.
type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Status int `json:"status"`
}

// Upload sends a base64 image and returns the hosted URL. A data-URI
// prefix is stripped before transmission; the provider wants the raw
// base64 payload in the "image" form field.
func (i *ImgBB) Upload(ctx context.Context, base64Image string) (string, error) {
	payload := classify.StripDataURI(base64Image)
	if strings.TrimSpace(payload) == "" {
		return "", &UploadError{Message: "empty image payload"}
	}

	form := url.Values{}
	form.Set("key", i.apiKey)
	form.Set("image", payload)

	req, err := http.NewRequestWithContext(ctx, "POST", i.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling image host: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading image host response: %w", err)
	}

	var hostResp imgbbResponse
	if err := json.Unmarshal(body, &hostResp); err != nil {
		return "", fmt.Errorf("decoding image host response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || !hostResp.Success {
		msg := hostResp.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", &UploadError{Message: msg}
	}

	if hostResp.Data.URL == "" {
		return "", &UploadError{Message: "response carried no url"}
	}

	return hostResp.Data.URL, nil
}
