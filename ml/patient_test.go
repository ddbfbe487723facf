package ml

import (
	"errors"
	"testing"
)

func TestParseCategories(t *testing.T) {
	if g, err := ParseGender("female"); err != nil || g != GenderFemale {
		t.Fatalf("expected Female, got %q (%v)", g, err)
	}
	if r, err := ParseRace(" AFRICANAMERICAN "); err != nil || r != RaceAfricanAmerican {
		t.Fatalf("expected AfricanAmerican, got %q (%v)", r, err)
	}
	for raw, want := range map[string]SmokingHistory{
		"Not current": SmokingNotCurrent,
		"not_current": SmokingNotCurrent,
		"NO INFO":     SmokingNoInfo,
		"never":       SmokingNever,
	} {
		got, err := ParseSmokingHistory(raw)
		if err != nil || got != want {
			t.Fatalf("%q: expected %q, got %q (%v)", raw, want, got, err)
		}
	}
	if _, err := ParseRace("unknown"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSmokingToken(t *testing.T) {
	want := []string{"current", "ever", "former", "never", "not_current", "no_info"}
	for i, s := range SmokingHistories() {
		if s.Token() != want[i] {
			t.Fatalf("expected %q, got %q", want[i], s.Token())
		}
	}
}

func TestDefaultPatientInputIsValid(t *testing.T) {
	if err := DefaultPatientInput().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateCollectsEveryField(t *testing.T) {
	err := PatientInput{}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Fields) != 7 {
		t.Fatalf("expected 7 field errors, got %d: %+v", len(verr.Fields), verr.Fields)
	}
}
