package ml

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ColumnYear          = "year"
	ColumnAge           = "age"
	ColumnGenderFemale  = "gender_Female"
	ColumnGenderMale    = "gender_Male"
	ColumnHypertension  = "hypertension"
	ColumnBMI           = "bmi"
	ColumnHbA1c         = "hbA1c_level"
	ColumnBloodGlucose  = "blood_glucose_level"
	CategoryPlaceholder = "{category}"

	DefaultYear         = 2020
	DefaultHypertension = 0
)

// ColumnNaming lists the column templates tried, in order, for each one-hot family.
type ColumnNaming struct {
	Race    []string `yaml:"race" json:"race"`
	Smoking []string `yaml:"smoking" json:"smoking"`
}

func DefaultColumnNaming() ColumnNaming {
	return ColumnNaming{
		Race:    []string{"race:" + CategoryPlaceholder, CategoryPlaceholder},
		Smoking: []string{"smoking_history_" + CategoryPlaceholder},
	}
}

func (n ColumnNaming) Validate() error {
	if len(n.Race) == 0 {
		return errors.New("race column templates are empty")
	}
	if len(n.Smoking) == 0 {
		return errors.New("smoking column templates are empty")
	}
	for _, tmpl := range append(append([]string(nil), n.Race...), n.Smoking...) {
		if !strings.Contains(tmpl, CategoryPlaceholder) {
			return fmt.Errorf("column template %q has no %s placeholder", tmpl, CategoryPlaceholder)
		}
	}
	return nil
}

type derivedColumn struct {
	name  string
	value float64
}

type FeatureBuilder struct {
	schema FeatureSchema
	naming ColumnNaming
}

func NewFeatureBuilder(schema FeatureSchema, naming ColumnNaming) (*FeatureBuilder, error) {
	if schema.Len() == 0 {
		return nil, errors.New("feature builder needs a non-empty schema")
	}
	if err := naming.Validate(); err != nil {
		return nil, err
	}
	return &FeatureBuilder{schema: schema, naming: naming}, nil
}

func (b *FeatureBuilder) Schema() FeatureSchema {
	return b.schema
}

// Build encodes the input and aligns it to the schema. Schema columns the input does
// not produce are zero; a non-zero value with no schema column is a SchemaMismatch.
func (b *FeatureBuilder) Build(input PatientInput) (FeatureRecord, error) {
	if err := input.Validate(); err != nil {
		return FeatureRecord{}, err
	}

	values := make([]float64, b.schema.Len())
	owner := make([]string, b.schema.Len())
	for _, col := range b.derive(input) {
		idx, ok := b.schema.Index(col.name)
		if !ok {
			if col.value != 0 {
				return FeatureRecord{}, schemaMismatch(col.name, "derived value %v has no column in the model schema", col.value)
			}
			continue
		}
		if owner[idx] != "" {
			return FeatureRecord{}, schemaMismatch(col.name, "derived twice")
		}
		owner[idx] = col.name
		values[idx] = col.value
	}

	return FeatureRecord{columns: b.schema.Columns(), values: values}, nil
}

func (b *FeatureBuilder) derive(input PatientInput) []derivedColumn {
	cols := []derivedColumn{
		{ColumnYear, DefaultYear},
		{ColumnAge, float64(input.Age)},
		{ColumnGenderFemale, indicator(input.Gender == GenderFemale)},
		{ColumnGenderMale, indicator(input.Gender == GenderMale)},
		{ColumnHypertension, DefaultHypertension},
		{ColumnBMI, input.BMI},
		{ColumnHbA1c, input.HbA1c},
		{ColumnBloodGlucose, float64(input.BloodGlucose)},
	}
	for _, race := range Races() {
		cols = append(cols, derivedColumn{
			name:  b.columnFor(b.naming.Race, string(race)),
			value: indicator(race == input.Race),
		})
	}
	for _, smoking := range SmokingHistories() {
		cols = append(cols, derivedColumn{
			name:  b.columnFor(b.naming.Smoking, smoking.Token()),
			value: indicator(smoking == input.SmokingHistory),
		})
	}
	return cols
}

// columnFor returns the first templated name the schema knows, or the first template's
// name when none matches.
func (b *FeatureBuilder) columnFor(templates []string, category string) string {
	for _, tmpl := range templates {
		name := strings.ReplaceAll(tmpl, CategoryPlaceholder, category)
		if b.schema.Has(name) {
			return name
		}
	}
	return strings.ReplaceAll(templates[0], CategoryPlaceholder, category)
}

func indicator(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
