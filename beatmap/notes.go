package beatmap

import (
	"math"

	"github.com/Masterminds/semver/v3"
)

type Color uint8

const (
	Left Color = iota
	Right
)

type CutDirection int

const (
	CutUp CutDirection = iota
	CutDown
	CutLeft
	CutRight
	CutUpLeft
	CutUpRight
	CutDownLeft
	CutDownRight
	CutAny
)

// cutAngles holds the facing angle in degrees for each directional cut.
var cutAngles = [...]float64{
	CutUp:        0,
	CutDown:      180,
	CutLeft:      90,
	CutRight:     -90,
	CutUpLeft:    45,
	CutUpRight:   -45,
	CutDownLeft:  135,
	CutDownRight: -135,
}

// ColorNote is a directional note cut by the saber of its color.
type ColorNote struct {
	Beat        float64
	X, Y        int
	Color       Color
	Direction   CutDirection
	AngleOffset float64 // degrees, counter-clockwise
}

func (n ColorNote) Type() ElementType {
	if n.Color == Right {
		return ColorNoteRight
	}
	return ColorNoteLeft
}

func (n ColorNote) Time() float64 { return n.Beat }

// AnyDirection reports an omni-directional note. Unknown direction codes
// (such as mapping-extension angles) are treated the same way.
func (n ColorNote) AnyDirection() bool {
	return n.Direction < CutUp || n.Direction >= CutAny
}

// FacingAngle returns the cut angle minus the angle offset, in radians,
// wrapped into [-pi, pi). It is 0 for omni-directional notes.
func (n ColorNote) FacingAngle() float64 {
	if n.AnyDirection() {
		return 0
	}
	return wrapDegrees(cutAngles[n.Direction]-n.AngleOffset) / 180 * math.Pi
}

func (n ColorNote) Canonical(song SongInfo) Event {
	return Event{
		Type:         n.Type(),
		Beat:         n.Beat,
		X:            n.X,
		Y:            n.Y,
		Angle:        n.FacingAngle(),
		AnyDirection: n.AnyDirection(),
		NJS:          song.NJS,
	}
}

// wrapDegrees maps d into [-180, 180).
func wrapDegrees(d float64) float64 {
	m := math.Mod(d+180, 360)
	if m < 0 {
		m += 360
	}
	return m - 180
}

type BombNote struct {
	Beat float64
	X, Y int
}

func (BombNote) Type() ElementType { return BombNoteType }

func (b BombNote) Time() float64 { return b.Beat }

func (b BombNote) Canonical(song SongInfo) Event {
	return Event{
		Type: BombNoteType,
		Beat: b.Beat,
		X:    b.X,
		Y:    b.Y,
		NJS:  song.NJS,
	}
}

// legacy note "_type" values
const (
	legacyNoteLeft  = 0
	legacyNoteRight = 1
	legacyNoteBomb  = 3
)

var ColorNotes = NewTable("color note", map[string]ParseFunc[ColorNote]{
	"2.0.0": colorNoteV2,
	"3.0.0": colorNoteV3,
})

var BombNotes = NewTable("bomb note", map[string]ParseFunc[BombNote]{
	"2.0.0": bombNoteV2,
	"3.0.0": bombNoteV3,
})

func colorNoteV2(_ *semver.Version, raw Raw) (ColorNote, bool, error) {
	var c Color
	switch raw.Int("_type", -1) {
	case legacyNoteLeft:
		c = Left
	case legacyNoteRight:
		c = Right
	default:
		return ColorNote{}, false, nil
	}
	return ColorNote{
		Beat:      raw.Float("_time", 0),
		X:         raw.Int("_lineIndex", 0),
		Y:         raw.Int("_lineLayer", 0),
		Color:     c,
		Direction: CutDirection(raw.Int("_cutDirection", 0)),
	}, true, nil
}

func colorNoteV3(_ *semver.Version, raw Raw) (ColorNote, bool, error) {
	c := Left
	if raw.Int("c", 0) == 1 {
		c = Right
	}
	return ColorNote{
		Beat:        raw.Float("b", 0),
		X:           raw.Int("x", 0),
		Y:           raw.Int("y", 0),
		Color:       c,
		Direction:   CutDirection(raw.Int("d", 0)),
		AngleOffset: raw.Float("a", 0),
	}, true, nil
}

func bombNoteV2(_ *semver.Version, raw Raw) (BombNote, bool, error) {
	if raw.Int("_type", -1) != legacyNoteBomb {
		return BombNote{}, false, nil
	}
	return BombNote{
		Beat: raw.Float("_time", 0),
		X:    raw.Int("_lineIndex", 0),
		Y:    raw.Int("_lineLayer", 0),
	}, true, nil
}

func bombNoteV3(_ *semver.Version, raw Raw) (BombNote, bool, error) {
	return BombNote{
		Beat: raw.Float("b", 0),
		X:    raw.Int("x", 0),
		Y:    raw.Int("y", 0),
	}, true, nil
}
