// Package registry resolves model artifact references, either local files or
// "models:/<name>/<version|stage>[/<artifact>]" URIs served by a model registry.
package registry

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	Scheme = "models:/"

	ArtifactModel   = "model"
	ArtifactScaler  = "scaler"
	ArtifactColumns = "columns"

	StageNone       = "None"
	StageStaging    = "Staging"
	StageProduction = "Production"
	StageArchived   = "Archived"
	VersionLatest   = "latest"
)

// Ref addresses one artifact of one registered model version. Version is either a
// positive number, a stage name or "latest".
type Ref struct {
	Name     string
	Version  string
	Artifact string
}

func IsRegistryRef(ref string) bool {
	return strings.HasPrefix(ref, Scheme)
}

func ParseRef(raw string) (Ref, error) {
	if !IsRegistryRef(raw) {
		return Ref{}, fmt.Errorf("registry ref %q must start with %s", raw, Scheme)
	}
	parts := strings.Split(strings.TrimPrefix(raw, Scheme), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return Ref{}, fmt.Errorf("registry ref %q must look like %s<name>/<version>[/<artifact>]", raw, Scheme)
	}
	ref := Ref{Name: parts[0], Version: parts[1], Artifact: ArtifactModel}
	if len(parts) == 3 {
		ref.Artifact = parts[2]
	}
	if ref.Name == "" || ref.Version == "" || ref.Artifact == "" {
		return Ref{}, fmt.Errorf("registry ref %q has an empty segment", raw)
	}
	if n, err := strconv.Atoi(ref.Version); err == nil && n <= 0 {
		return Ref{}, fmt.Errorf("registry ref %q: version must be positive", raw)
	}
	return ref, nil
}

func (r Ref) String() string {
	return Scheme + r.Name + "/" + r.Version + "/" + r.Artifact
}

// Pinned returns the numeric version when the ref names one.
func (r Ref) Pinned() (int, bool) {
	n, err := strconv.Atoi(r.Version)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
