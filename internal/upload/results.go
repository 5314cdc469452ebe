package upload

import (
	"encoding/json"
	"strings"
)

// ItemResult is the backend's verdict for one file.
type ItemResult struct {
	Filename     string `json:"filename" yaml:"filename"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
	Status       string `json:"status" yaml:"status"`
	DesignNumber string `json:"design_number,omitempty" yaml:"design_number,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r ItemResult) OK() bool { return r.Status == "success" }

// Results is a parsed 2xx response.
type Results struct {
	Catalog string       `json:"catalog" yaml:"catalog"`
	Items   []ItemResult `json:"results" yaml:"results"`
}

// Counts returns how many items succeeded and failed.
func (r Results) Counts() (ok, failed int) {
	for _, it := range r.Items {
		if it.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

// errorBody covers both `{"error": ...}` and FastAPI's `{"detail": ...}` shapes.
type errorBody struct {
	Error  string          `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

// errorMessage extracts a human readable message from an error response, or fallback.
func errorMessage(body []byte, fallback string) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return fallback
	}
	if s := strings.TrimSpace(eb.Error); s != "" {
		return s
	}
	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		// Validation errors come back as a list of objects; show them raw.
		if d := strings.TrimSpace(string(eb.Detail)); d != "" && d != "null" {
			return d
		}
	}
	return fallback
}
