package domain

import (
	"reflect"
	"testing"
)

func strptr(s string) *string { return &s }
func intptr(n int) *int       { return &n }

func TestMergeVariants_PathPreference(t *testing.T) {
	existing := []Variant{{FormatID: 85, CoverID: 100, Path: strptr("a")}}
	incoming := []Variant{{FormatID: 85, CoverID: 100, Path: nil}}

	merged := MergeVariants(existing, incoming)
	if len(merged) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(merged))
	}
	if merged[0].Path == nil || *merged[0].Path != "a" {
		t.Errorf("known path was replaced by nil path: %+v", merged[0])
	}
}

func TestMergeVariants_IncomingWinsOnTie(t *testing.T) {
	existing := []Variant{{FormatID: 85, CoverID: 100, Path: strptr("old")}}
	incoming := []Variant{{FormatID: 85, CoverID: 100, Path: strptr("new")}}

	merged := MergeVariants(existing, incoming)
	if len(merged) != 1 || *merged[0].Path != "new" {
		t.Errorf("expected incoming to win when both have paths, got %+v", merged)
	}

	// Both nil: incoming also wins (carries fresher dimensions).
	existing = []Variant{{FormatID: 72, CoverID: 5, Width: intptr(1)}}
	incoming = []Variant{{FormatID: 72, CoverID: 5, Width: intptr(240)}}
	merged = MergeVariants(existing, incoming)
	if len(merged) != 1 || *merged[0].Width != 240 {
		t.Errorf("expected incoming to win when neither has a path, got %+v", merged)
	}
}

func TestMergeVariants_IdentityUniqueness(t *testing.T) {
	existing := []Variant{
		{FormatID: 85, CoverID: 1, Path: strptr("a")},
		{FormatID: 72, CoverID: 1},
	}
	incoming := []Variant{
		{FormatID: 85, CoverID: 1},
		{FormatID: 85, CoverID: 2, Path: strptr("b")},
		{FormatID: 72, CoverID: 1, Path: strptr("c")},
	}

	merged := MergeVariants(existing, incoming)
	seen := make(map[[2]int]bool)
	for _, v := range merged {
		id := [2]int{v.FormatID, v.CoverID}
		if seen[id] {
			t.Fatalf("duplicate identity %v in merged output", id)
		}
		seen[id] = true
	}
	if len(merged) != 3 {
		t.Errorf("expected 3 distinct identities, got %d", len(merged))
	}
}

func TestMergeVariants_Idempotent(t *testing.T) {
	existing := []Variant{{FormatID: 85, CoverID: 1, Path: strptr("a")}}
	incoming := []Variant{
		{FormatID: 85, CoverID: 1},
		{FormatID: 72, CoverID: 2, Path: strptr("b")},
	}

	once := MergeVariants(existing, incoming)
	twice := MergeVariants(once, incoming)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second application changed the result:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeArtwork_ScalarPrecedence(t *testing.T) {
	stored := Artwork{
		ID:   42,
		Kind: "jpg",
		Path: strptr("covers/42/85.jpg"),
		Variants: []Variant{
			{FormatID: 85, CoverID: 1, Path: strptr("covers/42/85.jpg")},
		},
	}

	// Incoming without a canonical variant must not displace stored scalars.
	weak := Artwork{
		ID:   42,
		Kind: "png",
		Path: strptr("covers/42/72.png"),
		Variants: []Variant{
			{FormatID: 72, CoverID: 1, Path: strptr("covers/42/72.png")},
		},
	}
	merged := MergeArtwork(stored, weak, DefaultReferenceFormat)
	if *merged.Path != "covers/42/85.jpg" || merged.Kind != "jpg" {
		t.Errorf("non-canonical incoming displaced stored scalars: %+v", merged)
	}
	if len(merged.Variants) != 2 {
		t.Errorf("expected the new variant to still be merged in, got %d", len(merged.Variants))
	}

	// Incoming with a canonical variant takes over the scalars.
	strong := Artwork{
		ID:   42,
		Kind: "webp",
		Path: strptr("covers/42/85-v2.webp"),
		Variants: []Variant{
			{FormatID: 85, CoverID: 2, Path: strptr("covers/42/85-v2.webp")},
		},
	}
	merged = MergeArtwork(stored, strong, DefaultReferenceFormat)
	if *merged.Path != "covers/42/85-v2.webp" || merged.Kind != "webp" {
		t.Errorf("canonical incoming did not take precedence: %+v", merged)
	}
}

func TestMergeArtwork_NilNeverClobbers(t *testing.T) {
	stored := Artwork{
		ID:     7,
		Width:  intptr(600),
		Height: intptr(800),
		Path:   strptr("p"),
		Variants: []Variant{
			{FormatID: 85, CoverID: 1, Path: strptr("p")},
		},
	}
	incoming := Artwork{
		ID:   7,
		Kind: "jpg",
		Variants: []Variant{
			{FormatID: 85, CoverID: 1, Path: strptr("p")},
		},
	}

	merged := MergeArtwork(stored, incoming, DefaultReferenceFormat)
	if merged.Width == nil || merged.Height == nil || merged.Path == nil {
		t.Errorf("nil incoming fields clobbered stored values: %+v", merged)
	}
	if merged.Kind != "jpg" {
		t.Errorf("non-nil incoming field should have been applied, got kind %q", merged.Kind)
	}
}

func TestMergeArtwork_Idempotent(t *testing.T) {
	stored := Artwork{
		ID:       9,
		Captions: map[string]string{"en": "Nine"},
		Variants: []Variant{{FormatID: 72, CoverID: 1}},
	}
	incoming := Artwork{
		ID:       9,
		Kind:     "jpg",
		Path:     strptr("covers/9/85.jpg"),
		Captions: map[string]string{"en": "Nine", "de": "Neun"},
		Variants: []Variant{
			{FormatID: 85, CoverID: 1, Path: strptr("covers/9/85.jpg")},
			{FormatID: 72, CoverID: 1},
		},
	}

	once := MergeArtwork(stored, incoming, DefaultReferenceFormat)
	twice := MergeArtwork(once, incoming, DefaultReferenceFormat)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeArtwork_CaptionMerge(t *testing.T) {
	stored := Artwork{ID: 1, Captions: map[string]string{"en": "Old", "fr": "Ancien"}}
	incoming := Artwork{ID: 1, Captions: map[string]string{"en": "New", "de": "Neu", "fr": ""}}

	merged := MergeArtwork(stored, incoming, DefaultReferenceFormat)
	want := map[string]string{"en": "New", "de": "Neu", "fr": "Ancien"}
	if !reflect.DeepEqual(merged.Captions, want) {
		t.Errorf("caption merge mismatch: got %v want %v", merged.Captions, want)
	}
}

func TestFormatDims(t *testing.T) {
	w, h, ok := FormatDims(85)
	if !ok || w != 600 || h != 800 {
		t.Errorf("FormatDims(85) = %d,%d,%v", w, h, ok)
	}
	if _, _, ok := FormatDims(999); ok {
		t.Error("expected unknown format to report ok=false")
	}
	if !KnownFormat(72) || KnownFormat(999) {
		t.Error("KnownFormat table mismatch")
	}
}
