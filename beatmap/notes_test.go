package beatmap

import (
	"math"
	"testing"

	"github.com/Masterminds/semver/v3"
)

func TestFacingAngle(t *testing.T) {
	tests := []struct {
		dir    CutDirection
		offset float64
		want   float64 // degrees
	}{
		{CutUp, 0, 0},
		{CutDown, 0, -180},
		{CutLeft, 0, 90},
		{CutRight, 0, -90},
		{CutUpLeft, 0, 45},
		{CutUpRight, 0, -45},
		{CutDownLeft, 0, 135},
		{CutDownRight, 0, -135},
		{CutUp, 30, -30},
		{CutDown, 45, 135},
		{CutDown, -45, -135},
		{CutRight, 270, 0},
		{CutUp, 180, -180},
	}
	for _, tt := range tests {
		n := ColorNote{Direction: tt.dir, AngleOffset: tt.offset}
		got := n.FacingAngle()
		want := tt.want * math.Pi / 180
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("dir=%d offset=%v: got %v rad, want %v rad", tt.dir, tt.offset, got, want)
		}
		if got < -math.Pi || got >= math.Pi {
			t.Fatalf("dir=%d offset=%v: %v outside [-pi, pi)", tt.dir, tt.offset, got)
		}
		if n.AnyDirection() {
			t.Fatalf("dir=%d flagged as any direction", tt.dir)
		}
	}
}

func TestAnyDirection(t *testing.T) {
	for _, offset := range []float64{0, 45, -90, 360} {
		n := ColorNote{Direction: CutAny, AngleOffset: offset}
		if !n.AnyDirection() {
			t.Fatalf("offset %v: cut direction 8 must be any direction", offset)
		}
		ev := n.Canonical(SongInfo{})
		if !ev.AnyDirection || ev.Angle != 0 {
			t.Fatalf("offset %v: canonical event %+v", offset, ev)
		}
	}
}

func TestColorNoteV2(t *testing.T) {
	v := semver.MustParse("2.2.0")
	n, ok, err := ColorNotes.Resolve(v, Raw{"_time": 4.5, "_lineIndex": 3.0, "_lineLayer": 2.0, "_type": 1.0, "_cutDirection": 6.0})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	want := ColorNote{Beat: 4.5, X: 3, Y: 2, Color: Right, Direction: CutDownLeft}
	if n != want {
		t.Fatalf("got %+v, want %+v", n, want)
	}
	if n.Type() != ColorNoteRight {
		t.Fatalf("type %v", n.Type())
	}

	if _, ok, _ := ColorNotes.Resolve(v, Raw{"_type": 3.0}); ok {
		t.Fatalf("bomb accepted as color note")
	}
}

func TestColorNoteV3MissingFields(t *testing.T) {
	n, ok, err := ColorNotes.Resolve(semver.MustParse("3.3.0"), Raw{"b": 2.0, "a": 15.0})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	want := ColorNote{Beat: 2, Color: Left, Direction: CutUp, AngleOffset: 15}
	if n != want {
		t.Fatalf("got %+v, want %+v", n, want)
	}
}

func TestBombNote(t *testing.T) {
	b, ok, err := BombNotes.Resolve(semver.MustParse("2.0.0"), Raw{"_time": 1.0, "_lineIndex": 1.0, "_lineLayer": 0.0, "_type": 3.0, "_cutDirection": 0.0})
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if b != (BombNote{Beat: 1, X: 1, Y: 0}) {
		t.Fatalf("got %+v", b)
	}
	ev := b.Canonical(SongInfo{NJS: 16})
	if ev.Type != BombNoteType || ev.Angle != 0 || ev.AnyDirection || ev.NJS != 16 {
		t.Fatalf("canonical bomb %+v", ev)
	}
}
