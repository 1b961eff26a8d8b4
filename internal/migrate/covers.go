package migrate

import (
	"strconv"

	"covermig/internal/config"
	"covermig/internal/domain"
	"covermig/internal/source"
)

// ── Covers Profile ──────────────────────────────────────────
// Migrates cover-art rows keyed by title. Source records carry one row
// per (title, format, cover) with an optional localized caption.

type coversProfile struct {
	ref        int
	baseline   string
	maxTitleID int64
}

// NewCoversProfile builds the covers profile from its run parameters.
func NewCoversProfile(cfg config.ProfileConfig) (Profile, error) {
	ref := cfg.RefFormat
	if ref == 0 {
		ref = domain.DefaultReferenceFormat
	}
	baseline := cfg.BaselineLocale
	if baseline == "" {
		baseline = config.DefaultLocale
	}
	return &coversProfile{
		ref:        ref,
		baseline:   baseline,
		maxTitleID: cfg.MaxTitleID,
	}, nil
}

func (p *coversProfile) Name() string   { return "covers" }
func (p *coversProfile) RefFormat() int { return p.ref }

// Parse requires a positive title ID and a numeric format; everything
// else is optional. Records failing either are skipped, not fatal.
func (p *coversProfile) Parse(raw source.RawRecord) (Row, bool) {
	titleID, err := strconv.ParseInt(raw["title"], 10, 64)
	if err != nil || titleID <= 0 {
		return Row{}, false
	}
	formatID, err := strconv.Atoi(raw["format"])
	if err != nil {
		return Row{}, false
	}

	row := Row{
		TitleID:  titleID,
		FormatID: formatID,
		Locale:   raw["locale"],
		Caption:  raw["caption"],
		Path:     raw["path"],
		Kind:     raw["kind"],
	}
	if v, err := strconv.Atoi(raw["cover"]); err == nil {
		row.CoverID = v
	}
	if v, err := strconv.ParseInt(raw["publisher"], 10, 64); err == nil {
		row.PublisherID = v
	}
	return row, true
}

// Filter drops rows at or above the configured title bound. The bound
// is exclusive: a row whose title ID equals it is out of scope. Zero
// means unbounded.
func (p *coversProfile) Filter(row Row) bool {
	if p.maxTitleID > 0 && row.TitleID >= p.maxTitleID {
		return false
	}
	return true
}

func (p *coversProfile) GroupKey(row Row) int64 { return row.TitleID }

// Transform folds one title's rows into a single artwork record. The
// primary row, which supplies the scalar fields, is the first row in
// the reference format, or the group's first row when none matches.
func (p *coversProfile) Transform(group RowGroup) domain.Artwork {
	primary := group.Rows[0]
	for _, row := range group.Rows {
		if row.FormatID == p.ref {
			primary = row
			break
		}
	}

	captions := make(map[string]string)
	for _, row := range group.Rows {
		if row.Locale == "" || row.Caption == "" {
			continue
		}
		// Later rows overwrite, matching the merge rule everywhere
		// else: the newest non-empty text for a locale wins.
		captions[row.Locale] = row.Caption
	}
	// The baseline locale is always present so lookups never miss.
	if _, ok := captions[p.baseline]; !ok {
		captions[p.baseline] = ""
	}

	variants := make([]domain.Variant, 0, len(group.Rows))
	for _, row := range group.Rows {
		variants = append(variants, p.variant(row))
	}

	art := domain.Artwork{
		ID:          group.Key,
		PublisherID: primary.PublisherID,
		Kind:        primary.Kind,
		Captions:    captions,
		Variants:    domain.MergeVariants(nil, variants),
	}
	if w, h, ok := domain.FormatDims(primary.FormatID); ok {
		art.Width, art.Height = &w, &h
	}
	if primary.Path != "" {
		path := primary.Path
		art.Path = &path
	}
	return art
}

func (p *coversProfile) variant(row Row) domain.Variant {
	v := domain.Variant{FormatID: row.FormatID, CoverID: row.CoverID}
	if w, h, ok := domain.FormatDims(row.FormatID); ok {
		v.Width, v.Height = &w, &h
	}
	if row.Path != "" {
		path := row.Path
		v.Path = &path
	}
	return v
}
