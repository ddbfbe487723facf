package ml

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func trainingColumns() []string {
	return []string{
		"year",
		"gender_Female",
		"gender_Male",
		"gender_Other",
		"age",
		"race:AfricanAmerican",
		"race:Asian",
		"race:Caucasian",
		"race:Hispanic",
		"race:Other",
		"hypertension",
		"heart_disease",
		"bmi",
		"hbA1c_level",
		"blood_glucose_level",
		"smoking_history_current",
		"smoking_history_ever",
		"smoking_history_former",
		"smoking_history_never",
		"smoking_history_no_info",
		"smoking_history_not_current",
	}
}

func mustSchema(t *testing.T, columns []string) FeatureSchema {
	t.Helper()
	schema, err := NewFeatureSchema(columns)
	if err != nil {
		t.Fatalf("unexpected schema error: %v", err)
	}
	return schema
}

func mustBuilder(t *testing.T, columns []string) *FeatureBuilder {
	t.Helper()
	builder, err := NewFeatureBuilder(mustSchema(t, columns), DefaultColumnNaming())
	if err != nil {
		t.Fatalf("unexpected builder error: %v", err)
	}
	return builder
}

func samplePatient() PatientInput {
	return PatientInput{
		Age:            45,
		BMI:            28.4,
		HbA1c:          6.1,
		BloodGlucose:   140,
		Gender:         GenderFemale,
		Race:           RaceAsian,
		SmokingHistory: SmokingNever,
	}
}

func TestBuildScenario(t *testing.T) {
	builder := mustBuilder(t, trainingColumns())
	record, err := builder.Build(samplePatient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]float64{
		"year":                        2020,
		"gender_Female":               1,
		"gender_Male":                 0,
		"gender_Other":                0,
		"age":                         45,
		"race:AfricanAmerican":        0,
		"race:Asian":                  1,
		"race:Caucasian":              0,
		"race:Hispanic":               0,
		"race:Other":                  0,
		"hypertension":                0,
		"heart_disease":               0,
		"bmi":                         28.4,
		"hbA1c_level":                 6.1,
		"blood_glucose_level":         140,
		"smoking_history_current":     0,
		"smoking_history_ever":        0,
		"smoking_history_former":      0,
		"smoking_history_never":       1,
		"smoking_history_no_info":     0,
		"smoking_history_not_current": 0,
	}
	if diff := cmp.Diff(want, record.Map()); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildKeepsSchemaOrder(t *testing.T) {
	columns := trainingColumns()
	// reversed order must be honoured as-is
	reversed := make([]string, len(columns))
	for i, c := range columns {
		reversed[len(columns)-1-i] = c
	}

	for _, cols := range [][]string{columns, reversed} {
		builder := mustBuilder(t, cols)
		record, err := builder.Build(samplePatient())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(cols, record.Columns()); diff != "" {
			t.Fatalf("column order mismatch (-want +got):\n%s", diff)
		}
		if len(record.Values()) != len(cols) {
			t.Fatalf("expected %d values, got %d", len(cols), len(record.Values()))
		}
	}
}

func TestBuildOneHotFamilies(t *testing.T) {
	builder := mustBuilder(t, trainingColumns())
	for _, gender := range Genders() {
		for _, race := range Races() {
			for _, smoking := range SmokingHistories() {
				input := samplePatient()
				input.Gender = gender
				input.Race = race
				input.SmokingHistory = smoking

				record, err := builder.Build(input)
				if err != nil {
					t.Fatalf("%s/%s/%s: unexpected error: %v", gender, race, smoking, err)
				}
				values := record.Map()
				if values["gender_Female"]+values["gender_Male"] != 1 {
					t.Fatalf("%s: expected exactly one gender indicator, got %+v", gender, values)
				}
				if got := familySum(values, "race:"); got != 1 {
					t.Fatalf("%s: expected one race indicator, got %v", race, got)
				}
				if got := familySum(values, "smoking_history_"); got != 1 {
					t.Fatalf("%s: expected one smoking indicator, got %v", smoking, got)
				}
				if values["race:"+string(race)] != 1 {
					t.Fatalf("expected race:%s to be set", race)
				}
				if values["smoking_history_"+smoking.Token()] != 1 {
					t.Fatalf("expected smoking_history_%s to be set", smoking.Token())
				}
			}
		}
	}
}

func familySum(values map[string]float64, prefix string) float64 {
	sum := 0.0
	for name, v := range values {
		if strings.HasPrefix(name, prefix) {
			sum += v
		}
	}
	return sum
}

func TestBuildIdempotent(t *testing.T) {
	builder := mustBuilder(t, trainingColumns())
	first, err := builder.Build(samplePatient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := builder.Build(samplePatient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(first.Values(), second.Values()); diff != "" {
		t.Fatalf("records differ:\n%s", diff)
	}
	if diff := cmp.Diff(first.Columns(), second.Columns()); diff != "" {
		t.Fatalf("columns differ:\n%s", diff)
	}
}

func TestBuildBoundaries(t *testing.T) {
	builder := mustBuilder(t, trainingColumns())
	cases := []func(*PatientInput){
		func(p *PatientInput) { p.Age = MinAge },
		func(p *PatientInput) { p.Age = MaxAge },
		func(p *PatientInput) { p.BMI = MinBMI },
		func(p *PatientInput) { p.BMI = MaxBMI },
		func(p *PatientInput) { p.HbA1c = MinHbA1c },
		func(p *PatientInput) { p.HbA1c = MaxHbA1c },
		func(p *PatientInput) { p.BloodGlucose = MinBloodGlucose },
		func(p *PatientInput) { p.BloodGlucose = MaxBloodGlucose },
	}
	for i, mutate := range cases {
		input := samplePatient()
		mutate(&input)
		if _, err := builder.Build(input); err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
	}
}

func TestBuildRejectsOutOfBounds(t *testing.T) {
	builder := mustBuilder(t, trainingColumns())
	cases := map[string]func(*PatientInput){
		"age":          func(p *PatientInput) { p.Age = 0 },
		"bmi":          func(p *PatientInput) { p.BMI = 60.1 },
		"hbA1c":        func(p *PatientInput) { p.HbA1c = math.NaN() },
		"bloodGlucose": func(p *PatientInput) { p.BloodGlucose = 301 },
		"gender":       func(p *PatientInput) { p.Gender = "Other" },
		"race":         func(p *PatientInput) { p.Race = "Martian" },
	}
	for field, mutate := range cases {
		input := samplePatient()
		mutate(&input)
		_, err := builder.Build(input)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", field, err)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected *ValidationError, got %T", field, err)
		}
		if _, ok := verr.FieldMessages()[field]; !ok {
			t.Fatalf("%s: expected a message for the field, got %+v", field, verr.Fields)
		}
	}
}

func TestBuildZeroFillsUnknownColumns(t *testing.T) {
	columns := append(trainingColumns(), "location_Alabama")
	builder := mustBuilder(t, columns)
	record, err := builder.Build(samplePatient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := record.Value("location_Alabama")
	if !ok || v != 0 {
		t.Fatalf("expected zero-filled location_Alabama, got %v (present=%v)", v, ok)
	}
}

func TestBuildBareRaceColumns(t *testing.T) {
	columns := []string{
		"year", "age", "gender_Female", "gender_Male", "hypertension", "bmi",
		"hbA1c_level", "blood_glucose_level",
		"AfricanAmerican", "Asian", "Caucasian", "Hispanic", "Other",
		"smoking_history_current", "smoking_history_ever", "smoking_history_former",
		"smoking_history_never", "smoking_history_no_info", "smoking_history_not_current",
	}
	builder := mustBuilder(t, columns)
	record, err := builder.Build(samplePatient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := record.Value("Asian"); v != 1 {
		t.Fatalf("expected bare Asian indicator, got %v", v)
	}
	if diff := cmp.Diff(columns, record.Columns()); diff != "" {
		t.Fatalf("column order mismatch:\n%s", diff)
	}
}

func TestBuildSelectedCategoryWithoutColumn(t *testing.T) {
	var columns []string
	for _, c := range trainingColumns() {
		if c != "race:Asian" {
			columns = append(columns, c)
		}
	}
	builder := mustBuilder(t, columns)

	_, err := builder.Build(samplePatient())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) || mismatch.Column != "race:Asian" {
		t.Fatalf("expected mismatch on race:Asian, got %v", err)
	}

	// a category that is not selected only contributes a zero
	input := samplePatient()
	input.Race = RaceCaucasian
	if _, err := builder.Build(input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildMissingNumericColumn(t *testing.T) {
	var columns []string
	for _, c := range trainingColumns() {
		if c != "bmi" {
			columns = append(columns, c)
		}
	}
	builder := mustBuilder(t, columns)
	if _, err := builder.Build(samplePatient()); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestColumnNamingValidate(t *testing.T) {
	schema := mustSchema(t, trainingColumns())
	if _, err := NewFeatureBuilder(schema, ColumnNaming{Race: []string{"race"}, Smoking: []string{"s_{category}"}}); err == nil {
		t.Fatal("expected error for template without placeholder")
	}
	if _, err := NewFeatureBuilder(schema, ColumnNaming{}); err == nil {
		t.Fatal("expected error for empty naming")
	}
}

func TestRecordMarshalJSONKeepsOrder(t *testing.T) {
	builder := mustBuilder(t, []string{"bmi", "age", "year", "gender_Female", "gender_Male",
		"hypertension", "hbA1c_level", "blood_glucose_level", "race:Asian", "smoking_history_never"})
	record, err := builder.Build(samplePatient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload, err := record.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(string(payload), `{"bmi":28.4,"age":45,"year":2020,`) {
		t.Fatalf("unexpected encoding: %s", payload)
	}
}
