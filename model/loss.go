package model

import (
	"fmt"
	"math"
)

// GaussianNLL is the mean Gaussian negative log-likelihood of targets under
// the predicted means and variances, dropping the constant term. Variances
// are floored at MinVariance first.
func GaussianNLL(means, targets, variances []float64) (float64, error) {
	if len(means) != len(targets) || len(means) != len(variances) {
		return 0, &ShapeError{Reason: fmt.Sprintf("loss inputs have lengths %d/%d/%d", len(means), len(targets), len(variances))}
	}
	if len(means) == 0 {
		return 0, nil
	}
	total := 0.0
	for i := range means {
		v := max(variances[i], MinVariance)
		d := targets[i] - means[i]
		total += 0.5 * (math.Log(v) + d*d/v)
	}
	return total / float64(len(means)), nil
}

// Loss scores a batch of predictions against their rating labels.
func Loss(preds []Prediction, ratings []float64) (float64, error) {
	means := make([]float64, len(preds))
	variances := make([]float64, len(preds))
	for i, p := range preds {
		means[i] = p.Rating
		variances[i] = p.Variance
	}
	return GaussianNLL(means, ratings, variances)
}
