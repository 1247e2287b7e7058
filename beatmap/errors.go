package beatmap

import "fmt"

// ParseError reports a structurally required key that is absent, so the
// entity or file it belongs to cannot be built.
type ParseError struct {
	Entity string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Entity, e.Reason)
}

// UnsupportedVersionError is returned when a parsing table has no entry that
// can serve the requested version.
type UnsupportedVersionError struct {
	Entity  string
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s: unsupported schema version %q", e.Entity, e.Version)
}

// MapNotFoundError is returned when a level's info or difficulty file cannot
// be located.
type MapNotFoundError struct {
	Path string
	Err  error
}

func (e *MapNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("map not found: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("map not found: %s", e.Path)
}

func (e *MapNotFoundError) Unwrap() error { return e.Err }
