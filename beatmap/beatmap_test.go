package beatmap

import (
	"errors"
	"strings"
	"testing"
)

func mustDecode(t *testing.T, s string) Raw {
	t.Helper()
	raw, err := DecodeRaw(strings.NewReader(s))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return raw
}

func beats(events []Event) []float64 {
	out := make([]float64, len(events))
	for i, e := range events {
		out[i] = e.Beat
	}
	return out
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAssembleLegacyScenario(t *testing.T) {
	raw := mustDecode(t, `{
		"_notes": [
			{"_time": 0, "_lineIndex": 1, "_lineLayer": 1, "_type": 0, "_cutDirection": 0},
			{"_time": 1, "_lineIndex": 2, "_lineLayer": 0, "_type": 3, "_cutDirection": 0}
		],
		"_obstacles": [
			{"_time": 2, "_lineIndex": 0, "_type": 0, "_duration": 1, "_width": 1}
		]
	}`)
	b, err := Assemble(SongInfo{NJS: 18}, raw)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if b.Version.String() != "2.0.0" {
		t.Fatalf("version %s", b.Version)
	}
	events := b.Canonical()
	if !equalFloats(beats(events), []float64{0, 1, 2}) {
		t.Fatalf("beats %v", beats(events))
	}
	note := events[0]
	if note.Type != ColorNoteLeft || note.X != 1 || note.Y != 1 || note.AnyDirection || note.Angle != 0 || note.NJS != 18 {
		t.Fatalf("note %+v", note)
	}
	if events[1].Type != BombNoteType {
		t.Fatalf("bomb %+v", events[1])
	}
	if wall := events[2]; wall.Type != ObstacleType || wall.Y != 0 || wall.Height != 5 {
		t.Fatalf("wall %+v", wall)
	}
}

func TestAssembleMergeOrder(t *testing.T) {
	raw := mustDecode(t, `{
		"version": "3.0.0",
		"colorNotes": [{"b": 3}, {"b": 1, "c": 1}, {"b": 2}],
		"obstacles": [{"b": 1.5, "d": 1, "w": 1, "h": 5}]
	}`)
	b, err := Assemble(SongInfo{}, raw)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got := beats(b.Canonical()); !equalFloats(got, []float64{1, 1.5, 2, 3}) {
		t.Fatalf("beats %v", got)
	}
}

func TestAssembleStableTies(t *testing.T) {
	raw := mustDecode(t, `{
		"_version": "2.2.0",
		"_notes": [
			{"_time": 1, "_type": 1, "_lineIndex": 3},
			{"_time": 1, "_type": 3, "_lineIndex": 2},
			{"_time": 0, "_type": 0},
			{"_time": 1, "_type": 0, "_lineIndex": 1}
		]
	}`)
	b, err := Assemble(SongInfo{}, raw)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	events := b.Canonical()
	var xs []int
	for _, e := range events[1:] {
		xs = append(xs, e.X)
	}
	if len(xs) != 3 || xs[0] != 3 || xs[1] != 2 || xs[2] != 1 {
		t.Fatalf("ties reordered: %+v", events)
	}
}

func TestAssembleSkipsUnknownRecords(t *testing.T) {
	raw := mustDecode(t, `{
		"_version": "2.6.0",
		"_notes": [
			{"_time": 0, "_type": 0},
			{"_time": 1, "_type": 2},
			{"_time": 2, "_type": 1}
		],
		"_obstacles": [
			{"_time": 0, "_type": 0},
			{"_time": 1, "_type": 2, "_lineLayer": 1, "_height": 2},
			{"_time": 2, "_type": 7}
		],
		"_events": [
			{"_time": 0, "_type": 100, "_floatValue": 120},
			{"_time": 0, "_type": 1, "_value": 3},
			{"_time": 8, "_type": 100, "_floatValue": 140},
			{"_time": 8, "_type": 100, "_floatValue": 150}
		]
	}`)
	b, err := Assemble(SongInfo{}, raw)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if n := len(b.Elements); n != 4 {
		t.Fatalf("got %d elements, want 4", n)
	}
	if len(b.Notes()) != 2 || len(b.Bombs()) != 0 || len(b.Obstacles()) != 2 {
		t.Fatalf("notes=%d bombs=%d obstacles=%d", len(b.Notes()), len(b.Bombs()), len(b.Obstacles()))
	}
	want := []TempoChange{{0, 120}, {8, 140}, {8, 150}}
	if len(b.TempoChanges) != len(want) {
		t.Fatalf("tempo changes %+v", b.TempoChanges)
	}
	for i := range want {
		if b.TempoChanges[i] != want[i] {
			t.Fatalf("tempo change %d: got %+v, want %+v", i, b.TempoChanges[i], want[i])
		}
	}
}

func TestAssembleV3(t *testing.T) {
	raw := mustDecode(t, `{
		"version": "3.3.0",
		"bpmEvents": [{"b": 4, "m": 200}, {"b": 0, "m": 100}],
		"colorNotes": [{"b": 0.5, "x": 1, "y": 0, "c": 1, "d": 1, "a": 0}],
		"bombNotes": [{"b": 0.25, "x": 2, "y": 2}],
		"obstacles": [{"b": 0, "x": 0, "y": 1, "d": 4, "w": 2, "h": 3}]
	}`)
	b, err := Assemble(SongInfo{}, raw)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got := beats(b.Canonical()); !equalFloats(got, []float64{0, 0.25, 0.5}) {
		t.Fatalf("beats %v", got)
	}
	if b.TempoChanges[0].Beat != 0 || b.TempoChanges[1].Beat != 4 {
		t.Fatalf("tempo changes not sorted: %+v", b.TempoChanges)
	}
	note := b.Notes()[0]
	if note.Type() != ColorNoteRight || note.Direction != CutDown {
		t.Fatalf("note %+v", note)
	}
}

func TestAssembleV4(t *testing.T) {
	raw := mustDecode(t, `{
		"version": "4.0.0",
		"colorNotes": [{"b": 2, "i": 0}, {"b": 1, "i": 1}, {"b": 3, "i": 0}],
		"colorNotesData": [{"x": 1, "y": 0, "c": 0, "d": 0, "a": 0}, {"x": 2, "y": 1, "c": 1, "d": 8, "a": 0}],
		"bombNotes": [{"b": 0, "i": 0}],
		"bombNotesData": [{"x": 3, "y": 2}],
		"obstacles": [{"b": 1.5, "i": 0}],
		"obstaclesData": [{"d": 2, "x": 0, "y": 0, "w": 1, "h": 5}]
	}`)
	b, err := Assemble(SongInfo{}, raw)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	events := b.Canonical()
	if got := beats(events); !equalFloats(got, []float64{0, 1, 1.5, 2, 3}) {
		t.Fatalf("beats %v", got)
	}
	if !events[1].AnyDirection || events[1].Type != ColorNoteRight {
		t.Fatalf("indexed note %+v", events[1])
	}
	if events[3].X != 1 || events[4].X != 1 {
		t.Fatalf("shared data record not reused: %+v %+v", events[3], events[4])
	}
}

func TestAssembleV4BadIndex(t *testing.T) {
	raw := mustDecode(t, `{
		"version": "4.0.0",
		"colorNotes": [{"b": 2, "i": 3}],
		"colorNotesData": [{"x": 1}]
	}`)
	_, err := Assemble(SongInfo{}, raw)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}

	raw = mustDecode(t, `{"version": "4.0.0", "bombNotes": [{"b": 2, "i": 0}]}`)
	if _, err := Assemble(SongInfo{}, raw); !errors.As(err, &pe) {
		t.Fatalf("expected ParseError for missing data array, got %v", err)
	}
}

func TestSample(t *testing.T) {
	raw := mustDecode(t, `{"version": "3.0.0", "colorNotes": [{"b": 1}]}`)
	b, err := Assemble(SongInfo{NJS: 10}, raw)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	s := b.Sample(7.5)
	if s.Rating != 7.5 || len(s.Data) != 1 || s.Data[0].NJS != 10 {
		t.Fatalf("sample %+v", s)
	}
}
