package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marwamagdy-create/DEPI/ml"
)

// LocalFiles reads artifacts from disk; relative refs are resolved against Root.
type LocalFiles struct {
	Root string
}

func (l LocalFiles) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := ref
	if l.Root != "" && !filepath.IsAbs(ref) {
		path = filepath.Join(l.Root, ref)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ml.ErrArtifactMissing, path)
		}
		return nil, err
	}
	return payload, nil
}
