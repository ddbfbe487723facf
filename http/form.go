package http

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/marwamagdy-create/DEPI/ml"
)

// parseForm 解析表单提交。所有字段错误一并返回。
func parseForm(values url.Values) (ml.PatientInput, formValues, *ml.ValidationError) {
	raw := formValues{
		Age:            strings.TrimSpace(values.Get("age")),
		BMI:            strings.TrimSpace(values.Get("bmi")),
		HbA1c:          strings.TrimSpace(values.Get("hbA1c")),
		BloodGlucose:   strings.TrimSpace(values.Get("bloodGlucose")),
		Gender:         values.Get("gender"),
		Race:           values.Get("race"),
		SmokingHistory: values.Get("smokingHistory"),
	}

	var input ml.PatientInput
	verr := &ml.ValidationError{}
	fail := func(field, msg string) {
		verr.Fields = append(verr.Fields, ml.FieldError{Field: field, Message: msg})
	}

	if v, err := strconv.Atoi(raw.Age); err != nil {
		fail("age", "must be a whole number")
	} else {
		input.Age = v
	}
	if v, err := strconv.ParseFloat(raw.BMI, 64); err != nil {
		fail("bmi", "must be a number")
	} else {
		input.BMI = v
	}
	if v, err := strconv.ParseFloat(raw.HbA1c, 64); err != nil {
		fail("hbA1c", "must be a number")
	} else {
		input.HbA1c = v
	}
	if v, err := strconv.Atoi(raw.BloodGlucose); err != nil {
		fail("bloodGlucose", "must be a whole number")
	} else {
		input.BloodGlucose = v
	}
	if g, err := ml.ParseGender(raw.Gender); err != nil {
		fail("gender", "choose one of the listed options")
	} else {
		input.Gender = g
		raw.Gender = string(g)
	}
	if r, err := ml.ParseRace(raw.Race); err != nil {
		fail("race", "choose one of the listed options")
	} else {
		input.Race = r
		raw.Race = string(r)
	}
	if s, err := ml.ParseSmokingHistory(raw.SmokingHistory); err != nil {
		fail("smokingHistory", "choose one of the listed options")
	} else {
		input.SmokingHistory = s
		raw.SmokingHistory = string(s)
	}

	if len(verr.Fields) > 0 {
		return input, raw, verr
	}
	return input, raw, nil
}
