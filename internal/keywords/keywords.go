// Package keywords loads the two relevance keyword sets and matches them
// against article text. Sets are loaded once per run and immutable after.
package keywords

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Mode selects how an entry matches.
type Mode string

const (
	// ModeWord matches on word boundaries (single alphanumeric terms).
	ModeWord Mode = "word"
	// ModeExact matches as a case-insensitive substring (phrases, symbols).
	ModeExact Mode = "exact"
)

// Entry is one term of a keyword set with its resolved matching mode.
type Entry struct {
	Term string
	Mode Mode
	re   *regexp.Regexp
}

// Set is an ordered, immutable list of compiled keyword entries.
type Set struct {
	entries []Entry
}

// Sets bundles the two funnel layers.
type Sets struct {
	National Set
	Threat   Set
}

// ConfigError aborts run start when a keyword file is malformed.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("keywords config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

var alnumOnly = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// NewSet compiles entries in declaration order. Case-insensitive duplicates
// are dropped, first occurrence wins. Entries with empty mode get word-boundary
// matching when purely alphanumeric and substring matching otherwise.
func NewSet(entries []Entry) (Set, error) {
	seen := map[string]struct{}{}
	out := make([]Entry, 0, len(entries))

	for _, e := range entries {
		term := strings.TrimSpace(e.Term)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		mode := e.Mode
		if mode == "" {
			mode = ModeExact
			if alnumOnly.MatchString(term) {
				mode = ModeWord
			}
		}

		var expr string
		switch mode {
		case ModeWord:
			expr = `(?i)\b` + regexp.QuoteMeta(term) + `\b`
		case ModeExact:
			expr = `(?i)` + regexp.QuoteMeta(term)
		default:
			return Set{}, fmt.Errorf("keyword %q: unknown mode %q", term, string(mode))
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			return Set{}, fmt.Errorf("keyword %q: %w", term, err)
		}
		out = append(out, Entry{Term: term, Mode: mode, re: re})
	}

	return Set{entries: out}, nil
}

// Len reports the number of compiled entries.
func (s Set) Len() int { return len(s.entries) }

// Terms returns the entry terms in declaration order.
func (s Set) Terms() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Term
	}
	return out
}

// Match returns every matching term in declaration order, one occurrence per
// term regardless of how often it appears in the text.
func (s Set) Match(text string) []string {
	hay := normalize(text)
	var hits []string
	for _, e := range s.entries {
		if e.re.MatchString(hay) {
			hits = append(hits, e.Term)
		}
	}
	return hits
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

type setDoc struct {
	Version  int               `json:"version"`
	Enabled  bool              `json:"enabled"`
	Keywords []json.RawMessage `json:"keywords"`
}

type entryDoc struct {
	Term string `json:"term"`
	Mode Mode   `json:"mode,omitempty"`
}

// Load reads one keyword file. Entries are either bare strings or
// {"term":..., "mode":...} objects for an explicit matching mode.
func Load(path string) (Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Set{}, &ConfigError{Path: path, Err: fmt.Errorf("read: %w", err)}
	}

	var doc setDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Set{}, &ConfigError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}

	entries := make([]Entry, 0, len(doc.Keywords))
	for i, item := range doc.Keywords {
		var term string
		if err := json.Unmarshal(item, &term); err == nil {
			entries = append(entries, Entry{Term: term})
			continue
		}
		var obj entryDoc
		if err := json.Unmarshal(item, &obj); err != nil {
			return Set{}, &ConfigError{Path: path, Err: fmt.Errorf("keywords[%d]: %w", i, err)}
		}
		entries = append(entries, Entry{Term: obj.Term, Mode: obj.Mode})
	}

	set, err := NewSet(entries)
	if err != nil {
		return Set{}, &ConfigError{Path: path, Err: err}
	}
	return set, nil
}

// Save writes a keyword set in the canonical file form.
func Save(path string, terms []string) error {
	items := make([]json.RawMessage, 0, len(terms))
	for _, term := range terms {
		raw, err := json.Marshal(term)
		if err != nil {
			return fmt.Errorf("marshal keyword: %w", err)
		}
		items = append(items, raw)
	}
	doc := setDoc{Version: 1, Enabled: true, Keywords: items}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write keywords: %w", err)
	}
	return nil
}

// EnsureDefaults creates a keyword file with the given terms when it does not
// exist yet, so a fresh deployment can classify immediately.
func EnsureDefaults(path string, terms []string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat keywords: %w", err)
	}
	return Save(path, terms)
}
