package http

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/marwamagdy-create/DEPI/ml"
)

//go:embed openapi.yaml
var openAPIDocument []byte

const patientSchemaName = "PatientInput"

// InputValidator 根据OpenAPI文档校验预测请求体
type InputValidator struct {
	doc    *openapi3.T
	schema *openapi3.Schema
}

// NewInputValidator 加载内嵌的OpenAPI文档
func NewInputValidator(ctx context.Context) (*InputValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	ref, ok := doc.Components.Schemas[patientSchemaName]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("openapi document has no %s schema", patientSchemaName)
	}
	return &InputValidator{doc: doc, schema: ref.Value}, nil
}

// Validate 返回nil或包含所有字段错误的*ml.ValidationError
func (v *InputValidator) Validate(value interface{}) error {
	err := v.schema.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	var schemaErrs []*openapi3.SchemaError
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			var se *openapi3.SchemaError
			if errors.As(e, &se) {
				schemaErrs = append(schemaErrs, se)
			}
		}
	} else {
		var se *openapi3.SchemaError
		if errors.As(err, &se) {
			schemaErrs = append(schemaErrs, se)
		}
	}
	if len(schemaErrs) == 0 {
		return &ml.ValidationError{Fields: []ml.FieldError{{Field: "body", Message: err.Error()}}}
	}

	seen := make(map[string]bool)
	verr := &ml.ValidationError{}
	for _, se := range schemaErrs {
		field := "body"
		if path := se.JSONPointer(); len(path) > 0 {
			field = path[0]
		} else if se.SchemaField == "required" {
			field = missingProperty(se.Reason)
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		verr.Fields = append(verr.Fields, ml.FieldError{Field: field, Message: se.Reason})
	}
	sort.SliceStable(verr.Fields, func(i, j int) bool {
		return verr.Fields[i].Field < verr.Fields[j].Field
	})
	return verr
}

// Document 返回原始OpenAPI文档
func (v *InputValidator) Document() []byte {
	return openAPIDocument
}

// missingProperty 从 `property "age" is missing` 中提取字段名
func missingProperty(reason string) string {
	start := strings.IndexByte(reason, '"')
	if start < 0 {
		return "body"
	}
	end := strings.IndexByte(reason[start+1:], '"')
	if end < 0 {
		return "body"
	}
	return reason[start+1 : start+1+end]
}
