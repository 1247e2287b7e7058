// Package tokens turns canonical event sequences into the fixed-width
// numeric tokens consumed by the rating model.
package tokens

import (
	"encoding/json"
	"fmt"
	"os"

	"bsrating/beatmap"
)

// Width is the number of features per token.
const Width = 10

// Feature columns of a token.
const (
	FeatType = iota
	FeatTime
	FeatX
	FeatY
	FeatAngle
	FeatAnyDirection
	FeatWidth
	FeatHeight
	FeatDuration
	FeatNJS
)

// Pad is the type tag of padding positions.
const Pad = beatmap.Other

// Sequence is one encoded beatmap.
type Sequence struct {
	Features [][]float64 // len(Features[i]) == Width
	Types    []beatmap.ElementType
	Rating   float64
}

func (s Sequence) Len() int { return len(s.Types) }

// Token encodes a single canonical event. Fields that do not apply to the
// event's type are already zero in the canonical form.
func Token(e beatmap.Event) []float64 {
	tok := make([]float64, Width)
	tok[FeatType] = float64(e.Type)
	tok[FeatTime] = e.Beat
	tok[FeatX] = float64(e.X)
	tok[FeatY] = float64(e.Y)
	tok[FeatAngle] = e.Angle
	if e.AnyDirection {
		tok[FeatAnyDirection] = 1
	}
	tok[FeatWidth] = e.Width
	tok[FeatHeight] = e.Height
	tok[FeatDuration] = e.Duration
	tok[FeatNJS] = e.NJS
	return tok
}

// Encode converts a canonical event sequence into tokens.
func Encode(events []beatmap.Event) Sequence {
	s := Sequence{
		Features: make([][]float64, len(events)),
		Types:    make([]beatmap.ElementType, len(events)),
	}
	for i, e := range events {
		s.Features[i] = Token(e)
		s.Types[i] = e.Type
	}
	return s
}

// EncodeSample encodes a sample and keeps its rating label.
func EncodeSample(sample beatmap.Sample) Sequence {
	s := Encode(sample.Data)
	s.Rating = sample.Rating
	return s
}

// LoadSample reads a canonical sample file.
func LoadSample(path string) (beatmap.Sample, error) {
	var sample beatmap.Sample
	data, err := os.ReadFile(path)
	if err != nil {
		return sample, err
	}
	if err := json.Unmarshal(data, &sample); err != nil {
		return sample, fmt.Errorf("%s: %w", path, err)
	}
	return sample, nil
}

// WriteSample writes a canonical sample file.
func WriteSample(path string, sample beatmap.Sample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
