package domain

// Variant is a single stored rendition of a cover, identified by the
// (FormatID, CoverID) pair. Width, Height and Path are nil when the
// format is unrecognized or the source never supplied them.
type Variant struct {
	FormatID int     `json:"formatId" bson:"format_id"`
	CoverID  int     `json:"coverId" bson:"cover_id"`
	Width    *int    `json:"width" bson:"width"`
	Height   *int    `json:"height" bson:"height"`
	Path     *string `json:"path" bson:"path"`
}

// SameIdentity reports whether two variants refer to the same rendition.
func (v Variant) SameIdentity(o Variant) bool {
	return v.FormatID == o.FormatID && v.CoverID == o.CoverID
}

// Artwork is the migration target record: one row per title, carrying the
// best-known cover scalars, per-locale captions, and all known variants.
type Artwork struct {
	ID          int64             `json:"id" bson:"_id"`
	PublisherID int64             `json:"publisherId" bson:"publisher_id"`
	Kind        string            `json:"kind" bson:"kind"`
	Width       *int              `json:"width" bson:"width"`
	Height      *int              `json:"height" bson:"height"`
	Path        *string           `json:"path" bson:"path"`
	Captions    map[string]string `json:"captions" bson:"captions"`
	Variants    []Variant         `json:"variants" bson:"variants"`
}

// HasCanonical reports whether the artwork carries a variant in the
// reference format with a known path. Such a variant makes the artwork's
// scalar quality fields authoritative during conflict resolution.
func (a *Artwork) HasCanonical(refFormat int) bool {
	for _, v := range a.Variants {
		if v.FormatID == refFormat && v.Path != nil {
			return true
		}
	}
	return false
}

// MergeVariants reconciles two variant lists. For each identity present in
// either input exactly one entry survives:
//
//   - if exactly one side has a non-nil path, that side wins; a known path
//     is never replaced by an unknown one;
//   - otherwise the incoming entry wins.
//
// Applying MergeVariants repeatedly with the same incoming list is a no-op
// beyond the first application. Output order is existing-first, then new
// identities in incoming order.
func MergeVariants(existing, incoming []Variant) []Variant {
	merged := make([]Variant, len(existing))
	copy(merged, existing)

	for _, in := range incoming {
		found := false
		for i, cur := range merged {
			if !cur.SameIdentity(in) {
				continue
			}
			found = true
			if cur.Path != nil && in.Path == nil {
				break // keep the entry that knows its path
			}
			merged[i] = in
			break
		}
		if !found {
			merged = append(merged, in)
		}
	}
	return merged
}

// MergeArtwork folds incoming into existing and returns the merged record.
// refFormat selects the canonical variant format for scalar precedence:
// incoming quality fields (Kind, Width, Height, Path) replace the stored
// ones only when incoming carries a canonical variant with a known path, or
// when the stored record has none. A nil incoming field never clobbers a
// non-nil stored value. Captions merge per locale with non-empty incoming
// text winning. The merge is idempotent.
func MergeArtwork(existing, incoming Artwork, refFormat int) Artwork {
	out := existing

	if incoming.HasCanonical(refFormat) || !existing.HasCanonical(refFormat) {
		if incoming.Kind != "" {
			out.Kind = incoming.Kind
		}
		if incoming.Width != nil {
			out.Width = incoming.Width
		}
		if incoming.Height != nil {
			out.Height = incoming.Height
		}
		if incoming.Path != nil {
			out.Path = incoming.Path
		}
	}
	if incoming.PublisherID != 0 {
		out.PublisherID = incoming.PublisherID
	}

	if len(incoming.Captions) > 0 {
		merged := make(map[string]string, len(existing.Captions)+len(incoming.Captions))
		for loc, text := range existing.Captions {
			merged[loc] = text
		}
		for loc, text := range incoming.Captions {
			if text != "" || merged[loc] == "" {
				merged[loc] = text
			}
		}
		out.Captions = merged
	}

	out.Variants = MergeVariants(existing.Variants, incoming.Variants)
	return out
}
