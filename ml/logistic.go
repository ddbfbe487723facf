package ml

import (
	"errors"
	"fmt"
	"math"
)

// LogisticRegression scores sigmoid(w·x + b) and labels 1 at or above Threshold.
type LogisticRegression struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Threshold    float64   `json:"threshold,omitempty"`
}

func (lr *LogisticRegression) Validate() error {
	if len(lr.Coefficients) == 0 {
		return errors.New("logistic regression has no coefficients")
	}
	if lr.Threshold < 0 || lr.Threshold >= 1 {
		return fmt.Errorf("logistic regression threshold %v outside [0,1)", lr.Threshold)
	}
	return nil
}

func (lr *LogisticRegression) Width() int {
	return len(lr.Coefficients)
}

func (lr *LogisticRegression) PredictProba(features []float64) (float64, error) {
	if len(features) != len(lr.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(lr.Coefficients), len(features))
	}
	z := lr.Intercept
	for i, w := range lr.Coefficients {
		z += w * features[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}

func (lr *LogisticRegression) Predict(features []float64) (int, error) {
	p, err := lr.PredictProba(features)
	if err != nil {
		return 0, err
	}
	threshold := lr.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	if p >= threshold {
		return 1, nil
	}
	return 0, nil
}
