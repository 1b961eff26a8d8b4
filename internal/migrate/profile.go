package migrate

import (
	"fmt"
	"sort"

	"covermig/internal/config"
	"covermig/internal/domain"
	"covermig/internal/source"
)

// Row is one parsed source record. A profile decides which fields it
// fills; unused fields stay zero.
type Row struct {
	TitleID     int64
	FormatID    int
	CoverID     int
	Locale      string
	Caption     string
	Path        string
	PublisherID int64
	Kind        string
}

// Profile defines one migration's row semantics: how raw records become
// rows, which rows are in scope, how rows group, and how a group becomes
// a target record.
type Profile interface {
	Name() string

	// Parse maps a raw record to a row. ok=false means the record is
	// unusable and should be counted as skipped.
	Parse(raw source.RawRecord) (row Row, ok bool)

	// Filter reports whether a parsed row is in scope for this run.
	Filter(row Row) bool

	// GroupKey returns the row's natural key.
	GroupKey(row Row) int64

	// Transform folds one group into a target record.
	Transform(group RowGroup) domain.Artwork

	// RefFormat is the canonical format used for merge precedence.
	RefFormat() int
}

// Factory builds a profile from its run parameters.
type Factory func(cfg config.ProfileConfig) (Profile, error)

// Registry maps profile names to factories. It is plain data handed to
// whoever needs it; there is no package-level instance and no
// init-time self-registration.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name. Registering the same name twice
// is a programming error and is reported, not silently overwritten.
func (r *Registry) Register(name string, f Factory) error {
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("profile %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// New builds the named profile with the given parameters.
func (r *Registry) New(name string, cfg config.ProfileConfig) (Profile, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q (have %v)", name, r.Names())
	}
	return f(cfg)
}

// Names lists the registered profile names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with the built-in profiles.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register("covers", NewCoversProfile)
	return r
}
