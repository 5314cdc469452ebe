package upload

import (
	"fmt"
	"strings"

	"photomaker/internal/intake"
)

// MappingEntry pairs a file's position in the request with its design label.
type MappingEntry struct {
	Index        int    `json:"index"`
	DesignNumber string `json:"design_number"`
}

// Payload is one submission: the catalog, the mapping and the files in list order.
type Payload struct {
	Catalog string
	Mapping []MappingEntry
	Files   []intake.File
}

// DesignLabel is the trimmed design, or Design_{i+1} for an empty one.
func DesignLabel(design string, i int) string {
	if d := strings.TrimSpace(design); d != "" {
		return d
	}
	return fmt.Sprintf("Design_%d", i+1)
}

// BuildPayload validates and assembles a payload from a list snapshot.
func BuildPayload(catalog string, items []intake.Item) (Payload, error) {
	catalog = strings.TrimSpace(catalog)
	if catalog == "" {
		return Payload{}, &ValidationError{Reason: "select a catalog first"}
	}
	if len(items) == 0 {
		return Payload{}, &ValidationError{Reason: "add at least one image"}
	}
	p := Payload{
		Catalog: catalog,
		Mapping: make([]MappingEntry, len(items)),
		Files:   make([]intake.File, len(items)),
	}
	for i, it := range items {
		p.Mapping[i] = MappingEntry{Index: i, DesignNumber: DesignLabel(it.Design, i)}
		p.Files[i] = it.File
	}
	return p, nil
}

// OutputName is the filename the backend produces for a design.
func OutputName(catalog, design string) string {
	return fmt.Sprintf("%s - %s.jpg", catalog, design)
}
