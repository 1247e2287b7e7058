package beatmap

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
)

// Beatmap is one difficulty of a song.
type Beatmap struct {
	Version *semver.Version
	Song    SongInfo

	// TempoChanges are sorted by beat; ties keep file order.
	TempoChanges []TempoChange
	// Elements holds notes, bombs and obstacles sorted by beat; ties keep
	// file order.
	Elements []Element
}

var Beatmaps = NewTable("beatmap", map[string]ParseFunc[*Beatmap]{
	"2.0.0": beatmapV2,
	"3.0.0": beatmapV3,
	"4.0.0": beatmapV4,
})

// Assemble decodes a difficulty file into a beatmap for song. Records with
// unrecognised type discriminants are skipped.
func Assemble(song SongInfo, raw Raw) (*Beatmap, error) {
	v, err := fileVersion(raw)
	if err != nil {
		return nil, err
	}
	b, _, err := Beatmaps.Resolve(v, raw)
	if err != nil {
		return nil, err
	}
	b.Version = v
	b.Song = song
	slices.SortStableFunc(b.Elements, func(x, y Element) int {
		return cmp.Compare(x.Time(), y.Time())
	})
	slices.SortStableFunc(b.TempoChanges, func(x, y TempoChange) int {
		return cmp.Compare(x.Beat, y.Beat)
	})
	return b, nil
}

// Canonical returns the canonical event sequence of the beatmap.
func (b *Beatmap) Canonical() []Event {
	out := make([]Event, len(b.Elements))
	for i, e := range b.Elements {
		out[i] = e.Canonical(b.Song)
	}
	return out
}

// Sample wraps the canonical sequence with a rating label.
func (b *Beatmap) Sample(rating float64) Sample {
	return Sample{Data: b.Canonical(), Rating: rating}
}

func (b *Beatmap) Notes() []ColorNote     { return elementsOf[ColorNote](b) }
func (b *Beatmap) Bombs() []BombNote      { return elementsOf[BombNote](b) }
func (b *Beatmap) Obstacles() []Obstacle { return elementsOf[Obstacle](b) }

func elementsOf[T Element](b *Beatmap) []T {
	var out []T
	for _, e := range b.Elements {
		if t, ok := e.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// appendResolved resolves every record through table and appends the
// results that were not dropped.
func appendResolved[T Element](dst []Element, table *Table[T], v *semver.Version, records []Raw) ([]Element, error) {
	for _, r := range records {
		e, ok, err := table.Resolve(v, r)
		if err != nil {
			return dst, err
		}
		if ok {
			dst = append(dst, e)
		}
	}
	return dst, nil
}

func beatmapV2(v *semver.Version, raw Raw) (*Beatmap, bool, error) {
	b := &Beatmap{}
	notes, _ := raw.List("_notes")
	for _, n := range notes {
		var (
			e   Element
			ok  bool
			err error
		)
		switch n.Int("_type", -1) {
		case legacyNoteLeft, legacyNoteRight:
			e, ok, err = resolveElement(ColorNotes, v, n)
		case legacyNoteBomb:
			e, ok, err = resolveElement(BombNotes, v, n)
		default:
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if ok {
			b.Elements = append(b.Elements, e)
		}
	}

	obstacles, _ := raw.List("_obstacles")
	var err error
	if b.Elements, err = appendResolved(b.Elements, Obstacles, v, obstacles); err != nil {
		return nil, false, err
	}

	events, _ := raw.List("_events")
	for _, ev := range events {
		if ev.Int("_type", -1) != legacyBPMEventType {
			continue
		}
		t, ok, err := TempoChanges.Resolve(v, ev)
		if err != nil {
			return nil, false, err
		}
		if ok {
			b.TempoChanges = append(b.TempoChanges, t)
		}
	}
	return b, true, nil
}

func resolveElement[T Element](table *Table[T], v *semver.Version, raw Raw) (Element, bool, error) {
	e, ok, err := table.Resolve(v, raw)
	return e, ok, err
}

func beatmapV3(v *semver.Version, raw Raw) (*Beatmap, bool, error) {
	b := &Beatmap{}
	var err error
	notes, _ := raw.List("colorNotes")
	if b.Elements, err = appendResolved(b.Elements, ColorNotes, v, notes); err != nil {
		return nil, false, err
	}
	bombs, _ := raw.List("bombNotes")
	if b.Elements, err = appendResolved(b.Elements, BombNotes, v, bombs); err != nil {
		return nil, false, err
	}
	obstacles, _ := raw.List("obstacles")
	if b.Elements, err = appendResolved(b.Elements, Obstacles, v, obstacles); err != nil {
		return nil, false, err
	}
	tempo, _ := raw.List("bpmEvents")
	for _, r := range tempo {
		t, ok, err := TempoChanges.Resolve(v, r)
		if err != nil {
			return nil, false, err
		}
		if ok {
			b.TempoChanges = append(b.TempoChanges, t)
		}
	}
	return b, true, nil
}

// beatmapV4 joins each placement record ({b, i}) with the data record it
// indexes. Tempo lives in a separate audio file in this schema.
func beatmapV4(v *semver.Version, raw Raw) (*Beatmap, bool, error) {
	b := &Beatmap{}
	for _, group := range []struct {
		objects, data string
		add           func([]Raw) error
	}{
		{"colorNotes", "colorNotesData", func(rs []Raw) (err error) {
			b.Elements, err = appendResolved(b.Elements, ColorNotes, v, rs)
			return err
		}},
		{"bombNotes", "bombNotesData", func(rs []Raw) (err error) {
			b.Elements, err = appendResolved(b.Elements, BombNotes, v, rs)
			return err
		}},
		{"obstacles", "obstaclesData", func(rs []Raw) (err error) {
			b.Elements, err = appendResolved(b.Elements, Obstacles, v, rs)
			return err
		}},
	} {
		joined, err := joinIndexed(raw, group.objects, group.data)
		if err != nil {
			return nil, false, err
		}
		if err := group.add(joined); err != nil {
			return nil, false, err
		}
	}
	return b, true, nil
}

func joinIndexed(raw Raw, objectsKey, dataKey string) ([]Raw, error) {
	objects, _ := raw.List(objectsKey)
	if len(objects) == 0 {
		return nil, nil
	}
	data, ok := raw.List(dataKey)
	if !ok {
		return nil, &ParseError{Entity: "beatmap", Reason: fmt.Sprintf("%s present without %s", objectsKey, dataKey)}
	}
	out := make([]Raw, 0, len(objects))
	for _, o := range objects {
		i := o.Int("i", 0)
		if i < 0 || i >= len(data) {
			return nil, &ParseError{Entity: "beatmap", Reason: fmt.Sprintf("%s index %d outside %s (len %d)", objectsKey, i, dataKey, len(data))}
		}
		// the placement's beat wins over anything in the data record
		out = append(out, data[i].merge(Raw{"b": o.Float("b", 0)}))
	}
	return out, nil
}
