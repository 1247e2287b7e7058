package beatmap

import "github.com/Masterminds/semver/v3"

// Obstacle is a wall. Duration is in beats.
type Obstacle struct {
	Beat     float64
	X, Y     int
	Duration float64
	Width    float64
	Height   float64
}

func (Obstacle) Type() ElementType { return ObstacleType }

func (o Obstacle) Time() float64 { return o.Beat }

func (o Obstacle) Canonical(song SongInfo) Event {
	return Event{
		Type:     ObstacleType,
		Beat:     o.Beat,
		X:        o.X,
		Y:        o.Y,
		Width:    o.Width,
		Height:   o.Height,
		Duration: o.Duration,
		NJS:      song.NJS,
	}
}

// legacy obstacle "_type" values
const (
	wallFullHeight = 0
	wallCrouch     = 1
	wallFree       = 2
)

var Obstacles = NewTable("obstacle", map[string]ParseFunc[Obstacle]{
	"2.0.0": obstacleV2,
	"2.6.0": obstacleV2_6,
	"3.0.0": obstacleV3,
})

// obstacleV2 knows two archetypes and derives their layer and height;
// raw "_lineLayer"/"_height" are ignored. Other types are dropped.
func obstacleV2(_ *semver.Version, raw Raw) (Obstacle, bool, error) {
	o := Obstacle{
		Beat:     raw.Float("_time", 0),
		X:        raw.Int("_lineIndex", 0),
		Duration: raw.Float("_duration", 0),
		Width:    raw.Float("_width", 0),
	}
	switch raw.Int("_type", -1) {
	case wallFullHeight:
		o.Y, o.Height = 0, 5
	case wallCrouch:
		o.Y, o.Height = 2, 3
	default:
		return Obstacle{}, false, nil
	}
	return o, true, nil
}

// obstacleV2_6 adds the free-form type 2 with explicit layer and height.
// Types outside {0,1,2} are dropped.
func obstacleV2_6(v *semver.Version, raw Raw) (Obstacle, bool, error) {
	if raw.Int("_type", -1) != wallFree {
		return obstacleV2(v, raw)
	}
	return Obstacle{
		Beat:     raw.Float("_time", 0),
		X:        raw.Int("_lineIndex", 0),
		Y:        raw.Int("_lineLayer", 0),
		Duration: raw.Float("_duration", 0),
		Width:    raw.Float("_width", 0),
		Height:   raw.Float("_height", 0),
	}, true, nil
}

func obstacleV3(_ *semver.Version, raw Raw) (Obstacle, bool, error) {
	return Obstacle{
		Beat:     raw.Float("b", 0),
		X:        raw.Int("x", 0),
		Y:        raw.Int("y", 0),
		Duration: raw.Float("d", 0),
		Width:    raw.Float("w", 0),
		Height:   raw.Float("h", 0),
	}, true, nil
}
