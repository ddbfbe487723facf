package ml

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Classifier interface {
	Predict(features []float64) (int, error)
}

// ProbabilisticClassifier also estimates the probability of the positive class.
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(features []float64) (float64, error)
}

// Model is the loaded, read-only inference handle: classifier, schema and optional
// scaler. Build it with NewModel or NewProbabilisticModel.
type Model struct {
	source     string
	schema     FeatureSchema
	classifier Classifier
	proba      ProbabilisticClassifier
	scaler     *StandardScaler
}

func NewModel(source string, classifier Classifier, schema FeatureSchema, scaler *StandardScaler) (*Model, error) {
	if classifier == nil {
		return nil, errors.New("classifier is nil")
	}
	return newModel(source, classifier, nil, schema, scaler)
}

func NewProbabilisticModel(source string, classifier ProbabilisticClassifier, schema FeatureSchema, scaler *StandardScaler) (*Model, error) {
	if classifier == nil {
		return nil, errors.New("classifier is nil")
	}
	return newModel(source, classifier, classifier, schema, scaler)
}

func newModel(source string, classifier Classifier, proba ProbabilisticClassifier, schema FeatureSchema, scaler *StandardScaler) (*Model, error) {
	if schema.Len() == 0 {
		return nil, errors.New("model schema is empty")
	}
	if scaler != nil && scaler.Width() != schema.Len() {
		return nil, schemaMismatch("", "scaler has %d columns, schema has %d", scaler.Width(), schema.Len())
	}
	return &Model{
		source:     source,
		schema:     schema,
		classifier: classifier,
		proba:      proba,
		scaler:     scaler,
	}, nil
}

func (m *Model) Source() string {
	return m.source
}

func (m *Model) Schema() FeatureSchema {
	return m.schema
}

func (m *Model) Probabilistic() bool {
	return m.proba != nil
}

func (m *Model) Predict(record FeatureRecord) (Prediction, error) {
	if err := record.alignedTo(m.schema); err != nil {
		return Prediction{}, err
	}
	features := record.Values()
	if m.scaler != nil {
		scaled, err := m.scaler.Transform(features)
		if err != nil {
			return Prediction{}, err
		}
		features = scaled
	}

	label, err := m.classifier.Predict(features)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	if label != 0 && label != 1 {
		return Prediction{}, fmt.Errorf("predict: classifier returned label %d, expected 0 or 1", label)
	}
	result := Prediction{Label: label, Record: record}

	if m.proba != nil {
		p, err := m.proba.PredictProba(features)
		if err != nil {
			return Prediction{}, fmt.Errorf("predict proba: %w", err)
		}
		if math.IsNaN(p) || p < 0 || p > 1 {
			return Prediction{}, fmt.Errorf("predict proba: probability %v outside [0,1]", p)
		}
		score := p * 100
		result.RiskScore = &score
	}
	return result, nil
}

type Prediction struct {
	Label     int           `json:"label"`
	RiskScore *float64      `json:"risk_score,omitempty"`
	Record    FeatureRecord `json:"-"`
}

func (p Prediction) HighRisk() bool {
	return p.Label == 1
}

// RiskText formats the risk score with two decimals, or "" when the model has none.
func (p Prediction) RiskText() string {
	if p.RiskScore == nil {
		return ""
	}
	return message.NewPrinter(language.English).Sprintf("%.2f%%", *p.RiskScore)
}

func (p Prediction) Banner() string {
	if p.HighRisk() {
		return "High Diabetes Risk"
	}
	return "Low Diabetes Risk"
}
