// Package sources loads, validates and persists the catalog of monitored
// publishers. It is pure data handling; no stage reads it from ambient state.
package sources

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"NewsWatch/internal/domain"
)

// FieldError describes one invalid field of a source record.
type FieldError struct {
	Source string
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Field, e.Reason)
}

// ConfigError aborts run start when the catalog is malformed.
type ConfigError struct {
	Path   string
	Fields []FieldError
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sources config %s: %v", e.Path, e.Err)
	}
	reasons := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		reasons = append(reasons, f.Error())
	}
	return fmt.Sprintf("sources config %s: %s", e.Path, strings.Join(reasons, "; "))
}

func (e *ConfigError) Unwrap() error { return e.Err }

type catalogDoc struct {
	Version int             `json:"version"`
	Sources []domain.Source `json:"sources"`
}

// Load reads the publisher catalog and validates every record. A single
// invalid source fails the whole load; discovery never sees a half-valid
// catalog.
func Load(path string) ([]domain.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("read: %w", err)}
	}

	var doc catalogDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}

	var fields []FieldError
	for _, src := range doc.Sources {
		fields = append(fields, Validate(src)...)
	}
	if len(fields) > 0 {
		return nil, &ConfigError{Path: path, Fields: fields}
	}

	return doc.Sources, nil
}

// Validate checks one source record and returns every field violation.
// It is side-effect-free.
func Validate(src domain.Source) []FieldError {
	var out []FieldError

	name := strings.TrimSpace(src.Name)
	if name == "" {
		out = append(out, FieldError{Field: "name", Reason: "required"})
		name = "(unnamed)"
	}
	if strings.TrimSpace(src.Country) == "" {
		out = append(out, FieldError{Source: name, Field: "country", Reason: "required"})
	}
	if len(src.Endpoints) == 0 {
		out = append(out, FieldError{Source: name, Field: "endpoints", Reason: "at least one endpoint required"})
	}

	for i, ep := range src.Endpoints {
		field := fmt.Sprintf("endpoints[%d]", i)
		if strings.TrimSpace(ep.URL) == "" {
			out = append(out, FieldError{Source: name, Field: field + ".url", Reason: "required"})
		} else if !strings.HasPrefix(ep.URL, "http://") && !strings.HasPrefix(ep.URL, "https://") {
			out = append(out, FieldError{Source: name, Field: field + ".url", Reason: "must be absolute http(s)"})
		}
		if !ep.Kind.Valid() {
			out = append(out, FieldError{
				Source: name,
				Field:  field + ".type",
				Reason: fmt.Sprintf("unrecognized strategy %q", string(ep.Kind)),
			})
		}
	}

	return out
}

// Save writes the catalog back in its canonical form. Load∘Save∘Load is
// identity on validated input.
func Save(path string, list []domain.Source) error {
	doc := catalogDoc{Version: 1, Sources: list}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write sources: %w", err)
	}
	return nil
}
