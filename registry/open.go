package registry

import (
	"fmt"

	"github.com/marwamagdy-create/DEPI/config"
)

// Open builds the resolver described by cfg. An empty driver resolves local files
// only. The returned close func releases the registry store.
func Open(cfg config.RegistryConfig) (Resolver, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "":
		return Resolver{Local: LocalFiles{}}, noop, nil
	case "sqlite":
		store, err := OpenSQLite(cfg.Path)
		if err != nil {
			return Resolver{}, noop, err
		}
		return Resolver{Local: LocalFiles{}, Registry: store}, store.Close, nil
	case "http":
		store, err := NewHTTPStore(cfg.URL, cfg.Timeout, cfg.CacheSize)
		if err != nil {
			return Resolver{}, noop, err
		}
		return Resolver{Local: LocalFiles{}, Registry: store}, noop, nil
	default:
		return Resolver{}, noop, fmt.Errorf("registry driver %q is not supported", cfg.Driver)
	}
}
