package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/marwamagdy-create/DEPI/ml"
)

const maxArtifactBytes = 64 << 20

// HTTPStore fetches artifacts from a registry served by NewHandler. Pinned
// versions never change, so their payloads are cached.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	cache   *lru.Cache[string, []byte]
}

func NewHTTPStore(baseURL string, timeout time.Duration, cacheSize int) (*HTTPStore, error) {
	if baseURL == "" {
		return nil, errors.New("registry url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("registry url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cacheSize <= 0 {
		cacheSize = 16
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, err
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
	}, nil
}

func (s *HTTPStore) Fetch(ctx context.Context, raw string) ([]byte, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return nil, err
	}
	_, pinned := ref.Pinned()
	if pinned {
		if payload, ok := s.cache.Get(ref.String()); ok {
			return payload, nil
		}
	}

	endpoint := fmt.Sprintf("%s/api/registry/models/%s/versions/%s/artifacts/%s",
		s.baseURL, url.PathEscape(ref.Name), url.PathEscape(ref.Version), url.PathEscape(ref.Artifact))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ml.ErrArtifactMissing, ref)
	default:
		return nil, fmt.Errorf("fetch %s: registry returned %s", ref, resp.Status)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	if pinned {
		s.cache.Add(ref.String(), payload)
	}
	return payload, nil
}

// Store is what the registry HTTP API serves from.
type Store interface {
	FetchRef(ctx context.Context, ref Ref) ([]byte, error)
	List(ctx context.Context, name string) ([]Version, error)
}

// NewHandler exposes a Store over HTTP for HTTPStore clients.
func NewHandler(store Store) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/registry/models/{name}/versions", func(w http.ResponseWriter, r *http.Request) {
		versions, err := store.List(r.Context(), r.PathValue("name"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(versions) == 0 {
			http.Error(w, "model not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(versions)
	})
	mux.HandleFunc("GET /api/registry/models/{name}/versions/{version}/artifacts/{artifact}", func(w http.ResponseWriter, r *http.Request) {
		ref := Ref{
			Name:     r.PathValue("name"),
			Version:  r.PathValue("version"),
			Artifact: r.PathValue("artifact"),
		}
		payload, err := store.FetchRef(r.Context(), ref)
		if errors.Is(err, ml.ErrArtifactMissing) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(payload)
	})
	return mux
}
