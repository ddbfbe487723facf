package ml

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
)

const (
	MinAge          = 1
	MaxAge          = 120
	MinBMI          = 10.0
	MaxBMI          = 60.0
	MinHbA1c        = 3.5
	MaxHbA1c        = 15.0
	MinBloodGlucose = 50
	MaxBloodGlucose = 300
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

type Race string

const (
	RaceAfricanAmerican Race = "AfricanAmerican"
	RaceAsian           Race = "Asian"
	RaceCaucasian       Race = "Caucasian"
	RaceHispanic        Race = "Hispanic"
	RaceOther           Race = "Other"
)

type SmokingHistory string

const (
	SmokingCurrent    SmokingHistory = "Current"
	SmokingEver       SmokingHistory = "Ever"
	SmokingFormer     SmokingHistory = "Former"
	SmokingNever      SmokingHistory = "Never"
	SmokingNotCurrent SmokingHistory = "Not current"
	SmokingNoInfo     SmokingHistory = "No Info"
)

// Category lists in the order the form offers them and the encoder expands them.
func Genders() []Gender {
	return []Gender{GenderMale, GenderFemale}
}

func Races() []Race {
	return []Race{RaceAfricanAmerican, RaceAsian, RaceCaucasian, RaceHispanic, RaceOther}
}

func SmokingHistories() []SmokingHistory {
	return []SmokingHistory{
		SmokingCurrent,
		SmokingEver,
		SmokingFormer,
		SmokingNever,
		SmokingNotCurrent,
		SmokingNoInfo,
	}
}

// Token is the column fragment for a smoking category: "Not current" -> "not_current".
func (s SmokingHistory) Token() string {
	return strings.ReplaceAll(strings.ToLower(string(s)), " ", "_")
}

type PatientInput struct {
	Age            int            `json:"age" yaml:"age"`
	BMI            float64        `json:"bmi" yaml:"bmi"`
	HbA1c          float64        `json:"hbA1c" yaml:"hbA1c"`
	BloodGlucose   int            `json:"bloodGlucose" yaml:"bloodGlucose"`
	Gender         Gender         `json:"gender" yaml:"gender"`
	Race           Race           `json:"race" yaml:"race"`
	SmokingHistory SmokingHistory `json:"smokingHistory" yaml:"smokingHistory"`
}

// DefaultPatientInput holds the values the form starts with.
func DefaultPatientInput() PatientInput {
	return PatientInput{
		Age:            30,
		BMI:            25.0,
		HbA1c:          5.5,
		BloodGlucose:   120,
		Gender:         GenderMale,
		Race:           RaceAfricanAmerican,
		SmokingHistory: SmokingCurrent,
	}
}

func (p PatientInput) Validate() error {
	verr := &ValidationError{}
	if p.Age < MinAge || p.Age > MaxAge {
		verr.add("age", "must be between %d and %d, got %d", MinAge, MaxAge, p.Age)
	}
	if !inRange(p.BMI, MinBMI, MaxBMI) {
		verr.add("bmi", "must be between %.1f and %.1f, got %v", MinBMI, MaxBMI, p.BMI)
	}
	if !inRange(p.HbA1c, MinHbA1c, MaxHbA1c) {
		verr.add("hbA1c", "must be between %.1f and %.1f, got %v", MinHbA1c, MaxHbA1c, p.HbA1c)
	}
	if p.BloodGlucose < MinBloodGlucose || p.BloodGlucose > MaxBloodGlucose {
		verr.add("bloodGlucose", "must be between %d and %d, got %d", MinBloodGlucose, MaxBloodGlucose, p.BloodGlucose)
	}
	if !containsGender(p.Gender) {
		verr.add("gender", "unknown gender %q", p.Gender)
	}
	if !containsRace(p.Race) {
		verr.add("race", "unknown race %q", p.Race)
	}
	if !containsSmoking(p.SmokingHistory) {
		verr.add("smokingHistory", "unknown smoking history %q", p.SmokingHistory)
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func inRange(v, min, max float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return v >= min && v <= max
}

func containsGender(g Gender) bool {
	for _, c := range Genders() {
		if c == g {
			return true
		}
	}
	return false
}

func containsRace(r Race) bool {
	for _, c := range Races() {
		if c == r {
			return true
		}
	}
	return false
}

func containsSmoking(s SmokingHistory) bool {
	for _, c := range SmokingHistories() {
		if c == s {
			return true
		}
	}
	return false
}

// ParseGender, ParseRace and ParseSmokingHistory accept any letter case and, for
// multi-word categories, either spaces or underscores ("not_current").
func ParseGender(raw string) (Gender, error) {
	for _, g := range Genders() {
		if sameCategory(raw, string(g)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, raw)
}

func ParseRace(raw string) (Race, error) {
	for _, r := range Races() {
		if sameCategory(raw, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown race %q", ErrInvalidInput, raw)
}

func ParseSmokingHistory(raw string) (SmokingHistory, error) {
	for _, s := range SmokingHistories() {
		if sameCategory(raw, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown smoking history %q", ErrInvalidInput, raw)
}

func sameCategory(raw, category string) bool {
	return foldCategory(raw) == foldCategory(category)
}

func foldCategory(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
	return cases.Fold().String(s)
}
