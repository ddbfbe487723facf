package ml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FeatureSchema is the ordered list of columns a model was trained on.
type FeatureSchema struct {
	columns []string
	index   map[string]int
}

func NewFeatureSchema(columns []string) (FeatureSchema, error) {
	if len(columns) == 0 {
		return FeatureSchema{}, errors.New("feature schema is empty")
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if strings.TrimSpace(name) == "" {
			return FeatureSchema{}, fmt.Errorf("feature schema column %d is blank", i)
		}
		if _, dup := index[name]; dup {
			return FeatureSchema{}, fmt.Errorf("feature schema column %q is duplicated", name)
		}
		index[name] = i
	}
	return FeatureSchema{
		columns: append([]string(nil), columns...),
		index:   index,
	}, nil
}

func (s FeatureSchema) Columns() []string {
	return append([]string(nil), s.columns...)
}

func (s FeatureSchema) Len() int {
	return len(s.columns)
}

func (s FeatureSchema) Index(name string) (int, bool) {
	idx, ok := s.index[name]
	return idx, ok
}

func (s FeatureSchema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Equal reports whether both schemas list the same columns in the same order.
func (s FeatureSchema) Equal(other FeatureSchema) bool {
	if len(s.columns) != len(other.columns) {
		return false
	}
	for i := range s.columns {
		if s.columns[i] != other.columns[i] {
			return false
		}
	}
	return true
}

func (s FeatureSchema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.columns)
}

// diff describes the first difference between two schemas, for error messages.
func (s FeatureSchema) diff(other FeatureSchema) string {
	for _, name := range s.columns {
		if !other.Has(name) {
			return fmt.Sprintf("column %q missing from the other schema", name)
		}
	}
	for _, name := range other.columns {
		if !s.Has(name) {
			return fmt.Sprintf("unexpected column %q", name)
		}
	}
	for i := range s.columns {
		if s.columns[i] != other.columns[i] {
			return fmt.Sprintf("column %d is %q, expected %q", i, other.columns[i], s.columns[i])
		}
	}
	return "schemas are equal"
}

// FeatureRecord is one row aligned to a FeatureSchema.
type FeatureRecord struct {
	columns []string
	values  []float64
}

func (r FeatureRecord) Columns() []string {
	return append([]string(nil), r.columns...)
}

func (r FeatureRecord) Values() []float64 {
	return append([]float64(nil), r.values...)
}

func (r FeatureRecord) Len() int {
	return len(r.columns)
}

func (r FeatureRecord) Value(name string) (float64, bool) {
	for i, col := range r.columns {
		if col == name {
			return r.values[i], true
		}
	}
	return 0, false
}

func (r FeatureRecord) Map() map[string]float64 {
	out := make(map[string]float64, len(r.columns))
	for i, col := range r.columns {
		out[col] = r.values[i]
	}
	return out
}

// MarshalJSON keeps schema order, which a plain map would lose.
func (r FeatureRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// alignedTo checks the record against a schema before inference.
func (r FeatureRecord) alignedTo(schema FeatureSchema) error {
	if len(r.columns) != schema.Len() {
		return schemaMismatch("", "record has %d columns, schema has %d", len(r.columns), schema.Len())
	}
	for i, col := range r.columns {
		if schema.columns[i] != col {
			return schemaMismatch(col, "found at position %d, schema expects %q", i, schema.columns[i])
		}
	}
	return nil
}
