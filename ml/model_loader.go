package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v2"
)

const (
	KindDecisionTree       = "decision_tree"
	KindLogisticRegression = "logistic_regression"
)

// ArtifactFetcher returns the raw bytes behind an artifact reference (a file path or
// a registry URI). Missing artifacts are reported as ErrArtifactMissing.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// SchemaSource selects where the feature column order is read from.
type SchemaSource string

const (
	SchemaFromColumns   SchemaSource = "columns"
	SchemaFromSignature SchemaSource = "signature"
	SchemaFromAttribute SchemaSource = "attribute"
)

func ParseSchemaSource(raw string) (SchemaSource, error) {
	switch s := SchemaSource(raw); s {
	case SchemaFromColumns, SchemaFromSignature, SchemaFromAttribute:
		return s, nil
	default:
		return "", fmt.Errorf("unsupported schema source %q", raw)
	}
}

// Artifact is the serialized model envelope.
type Artifact struct {
	Kind           string              `json:"kind"`
	FeatureNamesIn []string            `json:"feature_names_in,omitempty"`
	Signature      *Signature          `json:"signature,omitempty"`
	Tree           *DecisionTree       `json:"tree,omitempty"`
	Logistic       *LogisticRegression `json:"logistic,omitempty"`
}

// Signature is a schema object attached to the model.
type Signature struct {
	Inputs []ColumnSpec `json:"inputs"`
}

type ColumnSpec struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type LoadOptions struct {
	Artifact     string
	Scaler       string
	Columns      string
	SchemaSource SchemaSource
}

func LoadModel(ctx context.Context, fetcher ArtifactFetcher, opts LoadOptions) (*Model, error) {
	if fetcher == nil {
		return nil, errors.New("artifact fetcher is nil")
	}
	if opts.Artifact == "" {
		return nil, errors.New("model artifact reference is required")
	}

	payload, err := fetcher.Fetch(ctx, opts.Artifact)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", opts.Artifact, err)
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", opts.Artifact, err)
	}

	schema, err := resolveSchema(ctx, fetcher, artifact, opts)
	if err != nil {
		return nil, err
	}

	var scaler *StandardScaler
	if opts.Scaler != "" {
		scaler, err = loadScaler(ctx, fetcher, opts.Scaler, schema)
		if err != nil {
			return nil, err
		}
	}

	switch artifact.Kind {
	case KindDecisionTree:
		if artifact.Tree == nil {
			return nil, fmt.Errorf("model %s: decision_tree artifact has no tree", opts.Artifact)
		}
		if w := artifact.Tree.Width(); w > schema.Len() {
			return nil, schemaMismatch("", "tree reads feature %d, schema has %d columns", w-1, schema.Len())
		}
		if artifact.Tree.HasProbabilities() {
			return NewProbabilisticModel(opts.Artifact, artifact.Tree, schema, scaler)
		}
		return NewModel(opts.Artifact, artifact.Tree, schema, scaler)
	case KindLogisticRegression:
		if artifact.Logistic == nil {
			return nil, fmt.Errorf("model %s: logistic_regression artifact has no parameters", opts.Artifact)
		}
		if err := artifact.Logistic.Validate(); err != nil {
			return nil, fmt.Errorf("model %s: %w", opts.Artifact, err)
		}
		if w := artifact.Logistic.Width(); w != schema.Len() {
			return nil, schemaMismatch("", "model has %d coefficients, schema has %d columns", w, schema.Len())
		}
		return NewProbabilisticModel(opts.Artifact, artifact.Logistic, schema, scaler)
	default:
		return nil, fmt.Errorf("model %s: unsupported model kind %q", opts.Artifact, artifact.Kind)
	}
}

// resolveSchema reads the schema from the selected source and requires every other
// source present to agree with it.
func resolveSchema(ctx context.Context, fetcher ArtifactFetcher, artifact Artifact, opts LoadOptions) (FeatureSchema, error) {
	candidates := make(map[SchemaSource]FeatureSchema)

	if len(artifact.FeatureNamesIn) > 0 {
		s, err := NewFeatureSchema(artifact.FeatureNamesIn)
		if err != nil {
			return FeatureSchema{}, fmt.Errorf("model attribute feature_names_in: %w", err)
		}
		candidates[SchemaFromAttribute] = s
	}
	if artifact.Signature != nil && len(artifact.Signature.Inputs) > 0 {
		names := make([]string, len(artifact.Signature.Inputs))
		for i, in := range artifact.Signature.Inputs {
			names[i] = in.Name
		}
		s, err := NewFeatureSchema(names)
		if err != nil {
			return FeatureSchema{}, fmt.Errorf("model signature: %w", err)
		}
		candidates[SchemaFromSignature] = s
	}
	if opts.Columns != "" {
		payload, err := fetcher.Fetch(ctx, opts.Columns)
		if err != nil {
			return FeatureSchema{}, fmt.Errorf("load columns %s: %w", opts.Columns, err)
		}
		var names []string
		if err := yaml.Unmarshal(payload, &names); err != nil {
			return FeatureSchema{}, fmt.Errorf("decode columns %s: %w", opts.Columns, err)
		}
		s, err := NewFeatureSchema(names)
		if err != nil {
			return FeatureSchema{}, fmt.Errorf("columns %s: %w", opts.Columns, err)
		}
		candidates[SchemaFromColumns] = s
	}

	source, err := ParseSchemaSource(string(opts.SchemaSource))
	if err != nil {
		return FeatureSchema{}, err
	}
	chosen, ok := candidates[source]
	if !ok {
		if source == SchemaFromColumns {
			return FeatureSchema{}, fmt.Errorf("%w: schema source %q needs a columns reference", ErrArtifactMissing, source)
		}
		return FeatureSchema{}, schemaMismatch("", "model %s carries no %s schema", opts.Artifact, source)
	}

	for _, other := range []SchemaSource{SchemaFromColumns, SchemaFromSignature, SchemaFromAttribute} {
		s, ok := candidates[other]
		if !ok || other == source {
			continue
		}
		if !chosen.Equal(s) {
			return FeatureSchema{}, schemaMismatch("", "%s schema disagrees with %s schema: %s", other, source, chosen.diff(s))
		}
	}
	return chosen, nil
}

func loadScaler(ctx context.Context, fetcher ArtifactFetcher, ref string, schema FeatureSchema) (*StandardScaler, error) {
	payload, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load scaler %s: %w", ref, err)
	}
	var scaler StandardScaler
	if err := json.Unmarshal(payload, &scaler); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", ref, err)
	}
	if err := scaler.Validate(); err != nil {
		return nil, fmt.Errorf("scaler %s: %w", ref, err)
	}
	if len(scaler.Columns) > 0 {
		cols, err := NewFeatureSchema(scaler.Columns)
		if err != nil {
			return nil, fmt.Errorf("scaler %s: %w", ref, err)
		}
		if !schema.Equal(cols) {
			return nil, schemaMismatch("", "scaler columns disagree with model schema: %s", schema.diff(cols))
		}
	}
	return &scaler, nil
}
