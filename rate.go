package main

import (
	"cmp"
	"context"
	"slices"

	"bsrating/beatmap"
	"bsrating/model"
	"bsrating/tokens"
)

// Rating is the predicted difficulty of one beatmap. Variance is nil for
// models without an uncertainty head.
type Rating struct {
	Difficulty string   `json:"difficulty"`
	Mean       float64  `json:"mean"`
	Variance   *float64 `json:"variance,omitempty"`
	Elements   int      `json:"elements"`
}

// rateBeatmaps rates every non-empty beatmap in ascending difficulty order.
func rateBeatmaps(ctx context.Context, m *model.Model, maps map[string]*beatmap.Beatmap) ([]Rating, error) {
	var diffs []string
	var seqs []tokens.Sequence
	for _, diff := range orderedDifficulties(maps) {
		seq := tokens.Encode(maps[diff].Canonical())
		if seq.Len() == 0 {
			continue
		}
		diffs = append(diffs, diff)
		seqs = append(seqs, seq)
	}
	if len(seqs) == 0 {
		return nil, nil
	}

	preds, err := m.PredictBatch(ctx, tokens.Collate(seqs), 0)
	if err != nil {
		return nil, err
	}
	ratings := make([]Rating, len(preds))
	for i, p := range preds {
		ratings[i] = Rating{Difficulty: diffs[i], Mean: p.Rating, Elements: seqs[i].Len()}
		if m.Config.Variant == model.Uncertainty {
			v := p.Variance
			ratings[i].Variance = &v
		}
	}
	return ratings, nil
}

func orderedDifficulties(maps map[string]*beatmap.Beatmap) []string {
	rank := func(d string) int {
		if i := slices.Index(beatmap.Difficulties, d); i >= 0 {
			return i
		}
		return len(beatmap.Difficulties)
	}
	diffs := make([]string, 0, len(maps))
	for d := range maps {
		diffs = append(diffs, d)
	}
	slices.SortFunc(diffs, func(a, b string) int {
		if c := cmp.Compare(rank(a), rank(b)); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return diffs
}
