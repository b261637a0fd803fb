package funnel

import (
	"reflect"
	"testing"

	"NewsWatch/internal/domain"
	"NewsWatch/internal/keywords"
)

func testSets(t *testing.T) keywords.Sets {
	t.Helper()
	national, err := keywords.NewSet([]keywords.Entry{
		{Term: "Pakistan"}, {Term: "Karachi"}, {Term: "ISI"},
	})
	if err != nil {
		t.Fatalf("national set: %v", err)
	}
	threat, err := keywords.NewSet([]keywords.Entry{
		{Term: "terrorism"}, {Term: "missile strike"}, {Term: "blast"},
	})
	if err != nil {
		t.Fatalf("threat set: %v", err)
	}
	return keywords.Sets{National: national, Threat: threat}
}

func TestClassifyShortlistsOnBothLayers(t *testing.T) {
	t.Parallel()

	f := New(testSets(t), nil)
	got := f.Classify(domain.Article{
		Title: "Blast reported in Karachi",
		Body:  "Officials in Pakistan said the explosion bore signs of terrorism.",
	})

	if !got.NationalRelevant || !got.ThreatRelevant || !got.Shortlisted {
		t.Fatalf("flags = %v/%v/%v, want all true", got.NationalRelevant, got.ThreatRelevant, got.Shortlisted)
	}
	if want := []string{"Pakistan", "Karachi"}; !reflect.DeepEqual(got.NationalMatches, want) {
		t.Fatalf("national hits = %v, want %v", got.NationalMatches, want)
	}
	if want := []string{"terrorism", "blast"}; !reflect.DeepEqual(got.ThreatMatches, want) {
		t.Fatalf("threat hits = %v, want %v", got.ThreatMatches, want)
	}
}

func TestClassifyGateSkipsThreatLayer(t *testing.T) {
	t.Parallel()

	// Threat language alone must not shortlist: the first layer gates the
	// second, even when second-layer terms are plainly present.
	f := New(testSets(t), nil)
	got := f.Classify(domain.Article{
		Title: "Missile strike hits oil depot",
		Body:  "The missile strike caused a blast visible for miles.",
	})

	if got.NationalRelevant {
		t.Fatal("national layer matched unexpectedly")
	}
	if got.ThreatRelevant || got.Shortlisted {
		t.Fatalf("gated article was flagged: threat=%v shortlisted=%v", got.ThreatRelevant, got.Shortlisted)
	}
	if got.ThreatMatches != nil {
		t.Fatalf("threat hits recorded despite gate: %v", got.ThreatMatches)
	}
}

func TestClassifyNationalOnlyNotShortlisted(t *testing.T) {
	t.Parallel()

	f := New(testSets(t), nil)
	got := f.Classify(domain.Article{
		Title: "Pakistan wins the series",
		Body:  "Fans in Karachi celebrated late into the night.",
	})

	if !got.NationalRelevant {
		t.Fatal("national layer should match")
	}
	if got.ThreatRelevant || got.Shortlisted {
		t.Fatal("sports story must not be shortlisted")
	}
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	f := New(testSets(t), nil)
	in := domain.Article{Title: "Blast in Karachi", Body: "terrorism suspected in Pakistan"}
	before := in

	out := f.Classify(in)
	if !reflect.DeepEqual(in, before) {
		t.Fatal("input article was mutated")
	}
	if !out.Shortlisted {
		t.Fatal("copy should carry the flags")
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	f := New(testSets(t), nil)
	first := f.Classify(domain.Article{Title: "Blast in Karachi", Body: "terrorism suspected in Pakistan"})
	second := f.Classify(first)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reclassification changed the article:\n%+v\n%+v", first, second)
	}
}
