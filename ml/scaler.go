package ml

import (
	"errors"
	"fmt"
)

// StandardScaler applies (x - mean) / scale per column, matching the scaler the
// model was trained behind.
type StandardScaler struct {
	Columns []string  `json:"columns,omitempty"`
	Mean    []float64 `json:"mean"`
	Scale   []float64 `json:"scale"`
}

func (s *StandardScaler) Validate() error {
	if len(s.Mean) == 0 {
		return errors.New("scaler mean is empty")
	}
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler mean/scale length mismatch: %d vs %d", len(s.Mean), len(s.Scale))
	}
	if len(s.Columns) > 0 && len(s.Columns) != len(s.Mean) {
		return fmt.Errorf("scaler columns/mean length mismatch: %d vs %d", len(s.Columns), len(s.Mean))
	}
	return nil
}

func (s *StandardScaler) Width() int {
	return len(s.Mean)
}

func (s *StandardScaler) Transform(values []float64) ([]float64, error) {
	if len(values) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.Mean), len(values))
	}
	result := make([]float64, len(values))
	for i, v := range values {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		result[i] = (v - s.Mean[i]) / scale
	}
	return result, nil
}
