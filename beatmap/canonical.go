package beatmap

// ElementType tags canonical events. The values double as the token type
// ids consumed by the rating model, so they must stay stable.
type ElementType int

const (
	ColorNoteLeft  ElementType = 0
	ColorNoteRight ElementType = 1
	BombNoteType   ElementType = 2
	ObstacleType   ElementType = 3
	// Other is never produced by parsing; it marks padding positions.
	Other    ElementType = 4
	BPMEvent ElementType = 100
)

// TokenTypes is the number of distinct type ids a token sequence can hold,
// padding included.
const TokenTypes = int(Other) + 1

func (t ElementType) String() string {
	switch t {
	case ColorNoteLeft:
		return "left"
	case ColorNoteRight:
		return "right"
	case BombNoteType:
		return "bomb"
	case ObstacleType:
		return "obstacle"
	case Other:
		return "other"
	case BPMEvent:
		return "bpm"
	}
	return "unknown"
}

// Element is a playable entity that can be written in canonical form.
type Element interface {
	Type() ElementType
	Time() float64
	Canonical(song SongInfo) Event
}

// Event is one record of the canonical serialized form. Fields that do not
// apply to the record's type are left zero.
type Event struct {
	Type         ElementType `json:"type"`
	Beat         float64     `json:"time"`
	X            int         `json:"x"`
	Y            int         `json:"y"`
	Angle        float64     `json:"angle,omitempty"`
	AnyDirection bool        `json:"any_dir,omitempty"`
	Width        float64     `json:"w,omitempty"`
	Height       float64     `json:"h,omitempty"`
	Duration     float64     `json:"duration,omitempty"`
	NJS          float64     `json:"njs"`
}

// Sample is a canonical event sequence with its rating label, the on-disk
// format of training and inference inputs.
type Sample struct {
	Data   []Event `json:"data"`
	Rating float64 `json:"rating"`
}
