package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TipoDesconocido is the fallback disease type when no finding qualifies.
const TipoDesconocido = "desconocida"

// SinOregano is the phrase the model emits when the image contains no
// oregano plant at all.
const SinOregano = "No se detecta oregano"

// DiseaseType resolves the disease type from the ordered findings list.
// Entries of the form "label: name" contribute the text after the first
// colon; entries without a colon are taken verbatim. The first non-empty
// candidate that is not "desconocida" wins. A colon-free entry always
// stops the scan, whatever its value.
func DiseaseType(entries []string) string {
	for _, entry := range entries {
		idx := strings.Index(entry, ":")
		if idx == -1 {
			return strings.TrimSpace(entry)
		}
		candidate := strings.TrimSpace(entry[idx+1:])
		if candidate == "" {
			continue
		}
		if strings.EqualFold(candidate, TipoDesconocido) {
			continue
		}
		return candidate
	}
	return TipoDesconocido
}

// StripDataURI removes a "data:image/...;base64," style prefix from a
// base64 string. Anything up to and including the first comma is dropped;
// a string without a data: prefix is returned unchanged.
func StripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ","); idx != -1 {
		return s[idx+1:]
	}
	return s
}

// extractJSON pulls a JSON object out of an LLM text response, tolerating
// markdown code fences and surrounding prose.
func extractJSON(text string) (*Response, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return &resp, nil
}
