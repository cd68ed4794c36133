package classify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiPrompt asks the model for the same JSON shape the dedicated
// prediction service returns, so both backends feed one pipeline.
const geminiPrompt = `You are a plant pathologist examining a photo of an oregano plant. Identify any disease visible on the leaves or stems.

Return ONLY valid JSON in this exact format:
{
  "enfermedades": ["Planta: <disease name in Spanish>"]
}

Rules:
- Use one entry per finding, each of the form "Planta: <name>" (for example "Planta: Mildiu" or "Planta: Roya").
- If the plant looks healthy, return ["Planta: Sana"].
- If you cannot tell what the disease is, return ["Planta: desconocida"].
- If the photo does not show an oregano plant at all, return ["No se detecta oregano"].
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// Gemini implements the Classifier interface using Google Gemini as a
// fallback when the dedicated prediction service is unavailable. Gemini
// returns no annotated image, so Imagen is filled with a base64 copy of
// the original photo.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Classifier instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Classify analyzes a plant image and extracts disease findings
func (g *Gemini) Classify(ctx context.Context, imageData []byte, contentType string) (*Response, error) {
	pngData, err := NormalizePNG(imageData, contentType)
	if err != nil {
		return nil, err
	}

	parts := []genai.Part{
		genai.ImageData("png", pngData),
		genai.Text(geminiPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	result, err := extractJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing gemini findings: %w", err)
	}

	// The downstream save step requires an image to host.
	if result.Imagen == "" {
		result.Imagen = "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
	}

	return result, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
