package migrate

import (
	"testing"

	"covermig/internal/config"
	"covermig/internal/source"
)

func newCovers(t *testing.T, cfg config.ProfileConfig) Profile {
	t.Helper()
	p, err := NewCoversProfile(cfg)
	if err != nil {
		t.Fatalf("NewCoversProfile: %v", err)
	}
	return p
}

func TestCovers_ParseValidation(t *testing.T) {
	p := newCovers(t, config.ProfileConfig{})

	cases := []struct {
		name string
		raw  source.RawRecord
		ok   bool
	}{
		{"valid", source.RawRecord{"title": "42", "format": "85"}, true},
		{"missing title", source.RawRecord{"format": "85"}, false},
		{"non-numeric title", source.RawRecord{"title": "abc", "format": "85"}, false},
		{"zero title", source.RawRecord{"title": "0", "format": "85"}, false},
		{"missing format", source.RawRecord{"title": "42"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := p.Parse(tc.raw); ok != tc.ok {
				t.Errorf("Parse ok = %v, want %v", ok, tc.ok)
			}
		})
	}
}

func TestCovers_ParseFields(t *testing.T) {
	p := newCovers(t, config.ProfileConfig{})

	row, ok := p.Parse(source.RawRecord{
		"title":     "42",
		"format":    "85",
		"cover":     "3",
		"locale":    "de",
		"caption":   "Umschlag",
		"path":      "covers/42/85.jpg",
		"publisher": "17",
		"kind":      "front",
	})
	if !ok {
		t.Fatal("Parse rejected a valid record")
	}
	if row.TitleID != 42 || row.FormatID != 85 || row.CoverID != 3 {
		t.Errorf("id fields mismatch: %+v", row)
	}
	if row.Locale != "de" || row.Caption != "Umschlag" || row.Kind != "front" {
		t.Errorf("text fields mismatch: %+v", row)
	}
	if row.PublisherID != 17 || row.Path != "covers/42/85.jpg" {
		t.Errorf("remaining fields mismatch: %+v", row)
	}
}

func TestCovers_FilterBoundIsExclusive(t *testing.T) {
	p := newCovers(t, config.ProfileConfig{MaxTitleID: 100})

	if !p.Filter(Row{TitleID: 99}) {
		t.Error("row below the bound was filtered out")
	}
	if p.Filter(Row{TitleID: 100}) {
		t.Error("row equal to the bound passed the filter")
	}
	if p.Filter(Row{TitleID: 101}) {
		t.Error("row above the bound passed the filter")
	}
}

func TestCovers_FilterUnbounded(t *testing.T) {
	p := newCovers(t, config.ProfileConfig{})
	if !p.Filter(Row{TitleID: 1 << 40}) {
		t.Error("unbounded filter rejected a row")
	}
}

// Three rows for one title: two in the reference format, one of them
// without a path, plus a thumbnail. The result must carry exactly two
// variant identities, and the reference variant must keep its path.
func TestCovers_TransformMergesDuplicateVariants(t *testing.T) {
	p := newCovers(t, config.ProfileConfig{RefFormat: 85})

	group := RowGroup{Key: 42, Rows: []Row{
		{TitleID: 42, FormatID: 85, CoverID: 1, Path: "covers/42/85.jpg"},
		{TitleID: 42, FormatID: 85, CoverID: 1},
		{TitleID: 42, FormatID: 72, CoverID: 1, Path: "covers/42/72.jpg"},
	}}

	art := p.Transform(group)
	if art.ID != 42 {
		t.Errorf("ID = %d, want 42", art.ID)
	}
	if len(art.Variants) != 2 {
		t.Fatalf("variants = %d, want 2: %+v", len(art.Variants), art.Variants)
	}
	ref := art.Variants[0]
	if ref.FormatID != 85 || ref.Path == nil || *ref.Path != "covers/42/85.jpg" {
		t.Errorf("reference variant lost its path: %+v", ref)
	}
}

func TestCovers_TransformPrimaryRow(t *testing.T) {
	p := newCovers(t, config.ProfileConfig{RefFormat: 85})

	// Reference-format row present: it supplies the scalars even when
	// it is not first.
	art := p.Transform(RowGroup{Key: 1, Rows: []Row{
		{TitleID: 1, FormatID: 72, PublisherID: 2, Kind: "back", Path: "b.jpg"},
		{TitleID: 1, FormatID: 85, PublisherID: 9, Kind: "front", Path: "a.jpg"},
	}})
	if art.PublisherID != 9 || art.Kind != "front" {
		t.Errorf("reference row did not supply scalars: %+v", art)
	}
	if art.Width == nil || *art.Width != 600 {
		t.Errorf("width not taken from reference format: %v", art.Width)
	}

	// No reference-format row: the group's first row wins.
	art = p.Transform(RowGroup{Key: 2, Rows: []Row{
		{TitleID: 2, FormatID: 72, PublisherID: 4, Kind: "back"},
		{TitleID: 2, FormatID: 60, PublisherID: 5, Kind: "front"},
	}})
	if art.PublisherID != 4 || art.Kind != "back" {
		t.Errorf("first-row fallback not applied: %+v", art)
	}
}

func TestCovers_TransformBaselineLocale(t *testing.T) {
	p := newCovers(t, config.ProfileConfig{BaselineLocale: "en"})

	art := p.Transform(RowGroup{Key: 3, Rows: []Row{
		{TitleID: 3, FormatID: 85, Locale: "de", Caption: "Umschlag"},
	}})
	if got, ok := art.Captions["en"]; !ok || got != "" {
		t.Errorf("baseline locale missing or non-empty: %v", art.Captions)
	}
	if art.Captions["de"] != "Umschlag" {
		t.Errorf("localized caption lost: %v", art.Captions)
	}

	art = p.Transform(RowGroup{Key: 4, Rows: []Row{
		{TitleID: 4, FormatID: 85, Locale: "en", Caption: "Cover"},
	}})
	if art.Captions["en"] != "Cover" {
		t.Errorf("baseline default overwrote a real caption: %v", art.Captions)
	}

	// Duplicate locale within a group: the later row's caption wins,
	// even over an earlier caption from a different format.
	art = p.Transform(RowGroup{Key: 5, Rows: []Row{
		{TitleID: 5, FormatID: 72, Locale: "en", Caption: "first"},
		{TitleID: 5, FormatID: 85, Locale: "en", Caption: "second"},
	}})
	if art.Captions["en"] != "second" {
		t.Errorf("caption = %q, want %q", art.Captions["en"], "second")
	}

	// An empty later caption does not erase an earlier one.
	art = p.Transform(RowGroup{Key: 6, Rows: []Row{
		{TitleID: 6, FormatID: 85, Locale: "en", Caption: "kept"},
		{TitleID: 6, FormatID: 72, Locale: "en"},
	}})
	if art.Captions["en"] != "kept" {
		t.Errorf("empty caption erased text: %v", art.Captions)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("covers", NewCoversProfile); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register("covers", NewCoversProfile); err == nil {
		t.Error("duplicate registration did not error")
	}
	if _, err := r.New("nope", config.ProfileConfig{}); err == nil {
		t.Error("unknown profile did not error")
	}
	p, err := r.New("covers", config.ProfileConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "covers" {
		t.Errorf("Name = %q", p.Name())
	}
}
