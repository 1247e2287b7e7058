package tokens

import (
	"path/filepath"
	"testing"

	"bsrating/beatmap"
)

func seqOf(n int) Sequence {
	events := make([]beatmap.Event, n)
	for i := range events {
		events[i] = beatmap.Event{Type: beatmap.ColorNoteLeft, Beat: float64(i), NJS: 16}
	}
	return Encode(events)
}

func TestToken(t *testing.T) {
	tok := Token(beatmap.Event{Type: beatmap.ColorNoteRight, Beat: 2, X: 3, Y: 1, Angle: 1.5, AnyDirection: true, NJS: 18})
	want := []float64{1, 2, 3, 1, 1.5, 1, 0, 0, 0, 18}
	for i := range want {
		if tok[i] != want[i] {
			t.Fatalf("token %v, want %v", tok, want)
		}
	}

	wall := Token(beatmap.Event{Type: beatmap.ObstacleType, Beat: 4, Width: 2, Height: 5, Duration: 1})
	if wall[FeatAngle] != 0 || wall[FeatAnyDirection] != 0 || wall[FeatWidth] != 2 || wall[FeatHeight] != 5 || wall[FeatDuration] != 1 {
		t.Fatalf("wall token %v", wall)
	}
}

func TestCollatePadding(t *testing.T) {
	b := Collate([]Sequence{seqOf(3), seqOf(5)})
	if b.Size() != 2 || b.MaxLen() != 5 {
		t.Fatalf("size=%d maxLen=%d", b.Size(), b.MaxLen())
	}
	wantMask := [][]bool{
		{false, false, false, true, true},
		{false, false, false, false, false},
	}
	for i := range wantMask {
		if len(b.Features[i]) != 5 || len(b.Types[i]) != 5 || len(b.Mask[i]) != 5 {
			t.Fatalf("sequence %d not padded to 5", i)
		}
		for j := range wantMask[i] {
			if b.Mask[i][j] != wantMask[i][j] {
				t.Fatalf("mask[%d] = %v, want %v", i, b.Mask[i], wantMask[i])
			}
			if b.Mask[i][j] != (b.Types[i][j] == Pad) {
				t.Fatalf("mask and pad tag disagree at %d,%d", i, j)
			}
			if len(b.Features[i][j]) != Width {
				t.Fatalf("feature width %d at %d,%d", len(b.Features[i][j]), i, j)
			}
		}
	}
	if b.Lengths[0] != 3 || b.Lengths[1] != 5 {
		t.Fatalf("lengths %v", b.Lengths)
	}
	for _, v := range b.Features[0][4] {
		if v != 0 {
			t.Fatalf("padding features not zero: %v", b.Features[0][4])
		}
	}
}

func TestDatasetBatches(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, n := range []int{2, 0, 4, 1} {
		p := filepath.Join(dir, string(rune('a'+i))+".json")
		events := make([]beatmap.Event, n)
		if err := WriteSample(p, beatmap.Sample{Data: events, Rating: float64(i)}); err != nil {
			t.Fatalf("write: %v", err)
		}
		paths = append(paths, p)
	}
	batches, err := Dataset{Paths: paths}.Batches(2)
	if err != nil {
		t.Fatalf("batches: %v", err)
	}
	if len(batches) != 2 || batches[0].MaxLen() != 4 || batches[1].MaxLen() != 1 {
		t.Fatalf("unexpected batches: %d", len(batches))
	}
	if batches[0].Ratings[1] != 2 || batches[1].Ratings[0] != 3 {
		t.Fatalf("ratings %v %v", batches[0].Ratings, batches[1].Ratings)
	}
}
