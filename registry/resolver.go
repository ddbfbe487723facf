package registry

import (
	"context"
	"fmt"

	"github.com/marwamagdy-create/DEPI/ml"
)

// Resolver sends registry URIs to Registry and everything else to Local.
type Resolver struct {
	Local    ml.ArtifactFetcher
	Registry ml.ArtifactFetcher
}

func (r Resolver) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if IsRegistryRef(ref) {
		if r.Registry == nil {
			return nil, fmt.Errorf("%w: %s: no model registry configured", ml.ErrArtifactMissing, ref)
		}
		return r.Registry.Fetch(ctx, ref)
	}
	if r.Local == nil {
		return LocalFiles{}.Fetch(ctx, ref)
	}
	return r.Local.Fetch(ctx, ref)
}
