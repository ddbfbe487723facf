// Package cli runs the patient form in a terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/marwamagdy-create/DEPI/ml"
)

// Form asks for one patient at a time and prints the prediction.
type Form struct {
	driver    PromptDriver
	predictor *ml.Predictor
}

func NewForm(driver PromptDriver, predictor *ml.Predictor) (*Form, error) {
	if driver == nil {
		return nil, errors.New("prompt driver is nil")
	}
	if predictor == nil {
		return nil, errors.New("predictor is nil")
	}
	return &Form{driver: driver, predictor: predictor}, nil
}

// Run loops until the user declines another prediction. Interrupts surface as ErrAborted.
func (f *Form) Run(ctx context.Context) error {
	if err := f.driver.Info(ctx, "Diabetes Prediction App"); err != nil {
		return err
	}
	defaults := ml.DefaultPatientInput()
	for {
		input, err := f.Ask(ctx, defaults)
		if err != nil {
			return err
		}
		if err := f.Predict(ctx, input); err != nil {
			return err
		}
		again, err := f.driver.Confirm(ctx, ConfirmConfig{Message: "Predict another patient?", Default: true})
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
		defaults = input
	}
}

// Ask prompts for every patient field, starting from the given defaults.
func (f *Form) Ask(ctx context.Context, defaults ml.PatientInput) (ml.PatientInput, error) {
	var input ml.PatientInput
	var err error

	if input.Age, err = f.askInt(ctx, "Age", defaults.Age, ml.MinAge, ml.MaxAge); err != nil {
		return input, err
	}
	if input.BMI, err = f.askFloat(ctx, "BMI", defaults.BMI, ml.MinBMI, ml.MaxBMI); err != nil {
		return input, err
	}
	if input.HbA1c, err = f.askFloat(ctx, "HbA1c Level", defaults.HbA1c, ml.MinHbA1c, ml.MaxHbA1c); err != nil {
		return input, err
	}
	if input.BloodGlucose, err = f.askInt(ctx, "Blood Glucose Level", defaults.BloodGlucose, ml.MinBloodGlucose, ml.MaxBloodGlucose); err != nil {
		return input, err
	}

	genders := ml.Genders()
	i, err := f.askSelect(ctx, "Gender", stringsOf(genders), string(defaults.Gender))
	if err != nil {
		return input, err
	}
	input.Gender = genders[i]

	races := ml.Races()
	if i, err = f.askSelect(ctx, "Race", stringsOf(races), string(defaults.Race)); err != nil {
		return input, err
	}
	input.Race = races[i]

	smoking := ml.SmokingHistories()
	if i, err = f.askSelect(ctx, "Smoking History", stringsOf(smoking), string(defaults.SmokingHistory)); err != nil {
		return input, err
	}
	input.SmokingHistory = smoking[i]

	return input, nil
}

// Predict scores input and prints the result block. Rejected input is reported to the
// user; a schema mismatch is returned because no later input can succeed.
func (f *Form) Predict(ctx context.Context, input ml.PatientInput) error {
	prediction, err := f.predictor.Predict(ctx, input)
	var verr *ml.ValidationError
	switch {
	case errors.As(err, &verr):
		for _, fe := range verr.Fields {
			if err := f.driver.Info(ctx, fmt.Sprintf("%s: %s", fe.Field, fe.Message)); err != nil {
				return err
			}
		}
		return nil
	case err != nil:
		return err
	}

	lines := []string{"Prediction Result", fmt.Sprintf("Diabetes Prediction: %d", prediction.Label)}
	if text := prediction.RiskText(); text != "" {
		lines = append(lines, "Risk Score: "+text)
	}
	lines = append(lines, prediction.Banner(), "Model loaded from "+f.predictor.Model().Source())
	for _, line := range lines {
		if err := f.driver.Info(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *Form) askInt(ctx context.Context, label string, def, min, max int) (int, error) {
	raw, err := f.driver.Input(ctx, InputConfig{
		Message:   label,
		Default:   strconv.Itoa(def),
		Help:      fmt.Sprintf("whole number between %d and %d", min, max),
		Validator: intBetween(min, max),
	})
	if err != nil {
		return 0, err
	}
	if err := intBetween(min, max)(raw); err != nil {
		return 0, fmt.Errorf("%s: %w", label, err)
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}

func (f *Form) askFloat(ctx context.Context, label string, def, min, max float64) (float64, error) {
	raw, err := f.driver.Input(ctx, InputConfig{
		Message:   label,
		Default:   strconv.FormatFloat(def, 'f', -1, 64),
		Help:      fmt.Sprintf("number between %.1f and %.1f", min, max),
		Validator: floatBetween(min, max),
	})
	if err != nil {
		return 0, err
	}
	if err := floatBetween(min, max)(raw); err != nil {
		return 0, fmt.Errorf("%s: %w", label, err)
	}
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

func (f *Form) askSelect(ctx context.Context, label string, options []string, def string) (int, error) {
	i, err := f.driver.Select(ctx, SelectConfig{
		Message:      label,
		Options:      options,
		DefaultIndex: indexOf(options, def),
	})
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(options) {
		return 0, fmt.Errorf("%s: no option selected", label)
	}
	return i, nil
}

func intBetween(min, max int) func(string) error {
	return func(raw string) error {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %q is not a whole number", ml.ErrInvalidInput, raw)
		}
		if v < min || v > max {
			return fmt.Errorf("%w: must be between %d and %d", ml.ErrInvalidInput, min, max)
		}
		return nil
	}
}

func floatBetween(min, max float64) func(string) error {
	return func(raw string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) {
			return fmt.Errorf("%w: %q is not a number", ml.ErrInvalidInput, raw)
		}
		if v < min || v > max {
			return fmt.Errorf("%w: must be between %.1f and %.1f", ml.ErrInvalidInput, min, max)
		}
		return nil
	}
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
