package beatmap

import (
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
)

// DefaultVersion is assumed for files that carry no version key at all.
var DefaultVersion = semver.MustParse("2.0.0")

// ParseFunc converts one raw schema-specific record into an entity. v is
// the version the record was read under, which container entities pass on
// to their children. ok is false when the record is recognised but
// intentionally yields nothing.
type ParseFunc[T any] func(v *semver.Version, raw Raw) (e T, ok bool, err error)

type tableEntry[T any] struct {
	version *semver.Version
	parse   ParseFunc[T]
}

// Table maps schema versions to the parser that handles them. Tables are
// built once at package init and never mutated afterwards.
type Table[T any] struct {
	entity  string
	entries []tableEntry[T]
}

// NewTable builds a parsing table. It panics on a malformed or duplicate
// version key, since tables are package-level literals.
func NewTable[T any](entity string, parsers map[string]ParseFunc[T]) *Table[T] {
	t := &Table[T]{entity: entity}
	for key, fn := range parsers {
		v, err := semver.NewVersion(key)
		if err != nil {
			panic(fmt.Sprintf("%s: bad parsing table key %q: %v", entity, key, err))
		}
		t.entries = append(t.entries, tableEntry[T]{version: v, parse: fn})
	}
	slices.SortFunc(t.entries, func(a, b tableEntry[T]) int {
		return a.version.Compare(b.version)
	})
	for i := 1; i < len(t.entries); i++ {
		if t.entries[i-1].version.Equal(t.entries[i].version) {
			panic(fmt.Sprintf("%s: duplicate parsing table key %s", entity, t.entries[i].version))
		}
	}
	return t
}

func (t *Table[T]) Entity() string { return t.entity }

// Versions lists the registered keys in ascending order.
func (t *Table[T]) Versions() []*semver.Version {
	out := make([]*semver.Version, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.version
	}
	return out
}

// Lookup returns the key selected for v: the largest key <= v, or the
// smallest key when v is below all of them.
func (t *Table[T]) Lookup(v *semver.Version) (*semver.Version, ParseFunc[T], error) {
	if len(t.entries) == 0 {
		s := "<nil>"
		if v != nil {
			s = v.String()
		}
		return nil, nil, &UnsupportedVersionError{Entity: t.entity, Version: s}
	}
	if v == nil {
		v = DefaultVersion
	}
	target := t.entries[0]
	for _, e := range t.entries {
		if e.version.GreaterThan(v) {
			break
		}
		target = e
	}
	return target.version, target.parse, nil
}

// Resolve dispatches raw to the parser selected for v.
func (t *Table[T]) Resolve(v *semver.Version, raw Raw) (T, bool, error) {
	_, parse, err := t.Lookup(v)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if v == nil {
		v = DefaultVersion
	}
	return parse(v, raw)
}

// ParseVersion parses a schema version string such as "2.6.0" or "3.3".
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, &ParseError{Entity: "version", Reason: fmt.Sprintf("malformed version %q", s)}
	}
	return v, nil
}

// fileVersion reads the schema version embedded in a level file. Older
// files use "_version", newer ones "version"; files with neither are
// treated as DefaultVersion.
func fileVersion(raw Raw) (*semver.Version, error) {
	for _, key := range []string{"_version", "version"} {
		if s := raw.String(key, ""); s != "" {
			return ParseVersion(s)
		}
	}
	return DefaultVersion, nil
}
