package ml

import (
	"context"
	"errors"
)

// Predictor turns raw patient input into a Prediction using one loaded Model.
type Predictor struct {
	model   *Model
	builder *FeatureBuilder
}

func NewPredictor(model *Model, naming ColumnNaming) (*Predictor, error) {
	if model == nil {
		return nil, errors.New("model is nil")
	}
	builder, err := NewFeatureBuilder(model.Schema(), naming)
	if err != nil {
		return nil, err
	}
	return &Predictor{model: model, builder: builder}, nil
}

func (p *Predictor) Model() *Model {
	return p.model
}

func (p *Predictor) Predict(ctx context.Context, input PatientInput) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	record, err := p.builder.Build(input)
	if err != nil {
		return Prediction{}, err
	}
	return p.model.Predict(record)
}
