package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/marwamagdy-create/DEPI/ml"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	infoMessages []string
	seenInputs   []InputConfig
	inputPos     int
	selectPos    int
	confirmPos   int
	inputErr     error
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if s.inputErr != nil {
		return "", s.inputErr
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	s.seenInputs = append(s.seenInputs, cfg)
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

type thresholdClassifier struct{}

func (thresholdClassifier) Predict(features []float64) (int, error) {
	// blood_glucose_level is the last column of testColumns
	if features[len(features)-1] >= 200 {
		return 1, nil
	}
	return 0, nil
}

func (thresholdClassifier) PredictProba(features []float64) (float64, error) {
	if features[len(features)-1] >= 200 {
		return 0.91, nil
	}
	return 0.125, nil
}

var testColumns = []string{
	"year", "age", "gender_Female", "gender_Male", "hypertension", "bmi", "hbA1c_level",
	"race:AfricanAmerican", "race:Asian", "race:Caucasian", "race:Hispanic", "race:Other",
	"smoking_history_current", "smoking_history_ever", "smoking_history_former",
	"smoking_history_never", "smoking_history_no_info", "smoking_history_not_current",
	"blood_glucose_level",
}

func newTestForm(t *testing.T, driver PromptDriver) *Form {
	t.Helper()
	schema, err := ml.NewFeatureSchema(testColumns)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	model, err := ml.NewProbabilisticModel("models/test_model.json", thresholdClassifier{}, schema, nil)
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	predictor, err := ml.NewPredictor(model, ml.DefaultColumnNaming())
	if err != nil {
		t.Fatalf("predictor: %v", err)
	}
	form, err := NewForm(driver, predictor)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	return form
}

func TestFormRunOnePatient(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"45", "28.4", "6.1", "240"},
		selectIdx: []int{1, 1, 3},
		confirm:   []bool{false},
	}
	if err := newTestForm(t, driver).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"Diabetes Prediction App",
		"Prediction Result",
		"Diabetes Prediction: 1",
		"Risk Score: 91.00%",
		"High Diabetes Risk",
		"Model loaded from models/test_model.json",
	}
	if diff := cmp.Diff(want, driver.infoMessages); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFormRunUsesDefaultsThenPreviousAnswers(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"45", "28.4", "6.1", "120", "46", "28.4", "6.1", "120"},
		selectIdx: []int{0, 2, 0, 0, 2, 0},
		confirm:   []bool{true, false},
	}
	if err := newTestForm(t, driver).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var defaults []string
	for _, cfg := range driver.seenInputs {
		defaults = append(defaults, cfg.Default)
	}
	want := []string{"30", "25", "5.5", "120", "45", "28.4", "6.1", "120"}
	if diff := cmp.Diff(want, defaults); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if got := driver.infoMessages[len(driver.infoMessages)-2]; got != "Low Diabetes Risk" {
		t.Fatalf("unexpected banner %q", got)
	}
}

func TestFormAborted(t *testing.T) {
	driver := &stubDriver{inputErr: ErrAborted}
	err := newTestForm(t, driver).Run(context.Background())
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestFormRejectsOutOfRangeAnswer(t *testing.T) {
	driver := &stubDriver{inputs: []string{"121"}}
	_, err := newTestForm(t, driver).Ask(context.Background(), ml.DefaultPatientInput())
	if !errors.Is(err, ml.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestValidators(t *testing.T) {
	ints := intBetween(ml.MinAge, ml.MaxAge)
	for raw, ok := range map[string]bool{"1": true, "120": true, " 30 ": true, "0": false, "121": false, "3.5": false, "x": false} {
		if err := ints(raw); (err == nil) != ok {
			t.Fatalf("intBetween(%q) = %v", raw, err)
		}
	}
	floats := floatBetween(ml.MinBMI, ml.MaxBMI)
	for raw, ok := range map[string]bool{"10": true, "60": true, "25.5": true, "9.99": false, "60.01": false, "NaN": false, "": false} {
		if err := floats(raw); (err == nil) != ok {
			t.Fatalf("floatBetween(%q) = %v", raw, err)
		}
	}
}
