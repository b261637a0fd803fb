package keywords

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func mustSet(t *testing.T, entries []Entry) Set {
	t.Helper()
	set, err := NewSet(entries)
	if err != nil {
		t.Fatalf("NewSet error: %v", err)
	}
	return set
}

func TestWordBoundaryMatching(t *testing.T) {
	t.Parallel()

	set := mustSet(t, []Entry{{Term: "bomb"}})

	if hits := set.Match("a bomb exploded"); len(hits) != 1 {
		t.Fatalf("expected match, got %v", hits)
	}
	if hits := set.Match("the bombardment continued"); len(hits) != 0 {
		t.Fatalf("word-boundary term matched inside a longer word: %v", hits)
	}
}

func TestPhraseSubstringMatching(t *testing.T) {
	t.Parallel()

	set := mustSet(t, []Entry{{Term: "missile strike"}})

	if hits := set.Match("after the Missile  Strike on the base"); len(hits) != 1 {
		t.Fatalf("expected phrase match across collapsed whitespace, got %v", hits)
	}
}

func TestMatchOrderFollowsDeclaration(t *testing.T) {
	t.Parallel()

	set := mustSet(t, []Entry{{Term: "Karachi"}, {Term: "Pakistan"}, {Term: "Lahore"}})
	got := set.Match("Pakistan reacts as Lahore and Karachi brace for rain")
	want := []string{"Karachi", "Pakistan", "Lahore"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("match order = %v, want declaration order %v", got, want)
	}
}

func TestRepeatedOccurrencesRecordedOnce(t *testing.T) {
	t.Parallel()

	set := mustSet(t, []Entry{{Term: "attack"}})
	got := set.Match("attack after attack after attack")
	if len(got) != 1 {
		t.Fatalf("expected one hit for repeated term, got %v", got)
	}
}

func TestDuplicateTermsDroppedCaseInsensitive(t *testing.T) {
	t.Parallel()

	set := mustSet(t, []Entry{{Term: "Pakistan"}, {Term: "pakistan"}})
	if set.Len() != 1 {
		t.Fatalf("expected duplicate to be dropped, have %d entries", set.Len())
	}
	if set.Terms()[0] != "Pakistan" {
		t.Fatalf("first occurrence should win, got %v", set.Terms())
	}
}

func TestLoadAcceptsStringsAndObjects(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keywords_national.json")
	raw := `{"version":1,"enabled":true,"keywords":[
	  "Pakistan",
	  {"term":"FATF", "mode":"exact"},
	  {"term":"cross-border shelling"}
	]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := []string{"Pakistan", "FATF", "cross-border shelling"}
	if !reflect.DeepEqual(set.Terms(), want) {
		t.Fatalf("terms = %v, want %v", set.Terms(), want)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keywords_threat.json")
	if err := os.WriteFile(path, []byte(`{"keywords": "oops"}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed keyword file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keywords.json")
	terms := []string{"blast", "bomb attack", "IED"}
	if err := Save(path, terms); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !reflect.DeepEqual(set.Terms(), terms) {
		t.Fatalf("round trip terms = %v, want %v", set.Terms(), terms)
	}
}

func TestEnsureDefaultsDoesNotOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keywords.json")
	if err := EnsureDefaults(path, []string{"Pakistan"}); err != nil {
		t.Fatalf("EnsureDefaults error: %v", err)
	}
	if err := EnsureDefaults(path, []string{"replaced"}); err != nil {
		t.Fatalf("second EnsureDefaults error: %v", err)
	}
	set, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !reflect.DeepEqual(set.Terms(), []string{"Pakistan"}) {
		t.Fatalf("EnsureDefaults overwrote existing file: %v", set.Terms())
	}
}
