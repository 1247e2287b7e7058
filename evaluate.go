package main

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"bsrating/model"
	"bsrating/tokens"
)

type EvalReport struct {
	Samples int
	NLL     float64
	MAE     float64
}

// evaluate scores m on every canonical sample in dir.
func evaluate(ctx context.Context, m *model.Model, dir string, batchSize int) (EvalReport, error) {
	var report EvalReport
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return report, err
	}
	batches, err := tokens.Dataset{Paths: paths}.Batches(batchSize)
	if err != nil {
		return report, err
	}

	var nllSum, absSum float64
	for i, b := range batches {
		preds, err := m.PredictBatch(ctx, b, 0)
		if err != nil {
			return report, fmt.Errorf("batch %d: %w", i, err)
		}
		nll, err := model.Loss(preds, b.Ratings)
		if err != nil {
			return report, err
		}
		nllSum += nll * float64(b.Size())
		for j, p := range preds {
			absSum += math.Abs(p.Rating - b.Ratings[j])
		}
		report.Samples += b.Size()
	}
	if report.Samples > 0 {
		report.NLL = nllSum / float64(report.Samples)
		report.MAE = absSum / float64(report.Samples)
	}
	return report, nil
}
