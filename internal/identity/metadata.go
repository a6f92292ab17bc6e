// AngelaMos | 2026
// metadata.go

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
)

// HTTPMetadataStore talks to the identity provider's backend API:
//
//	GET   {base}/users/{id}           -> {"private_metadata": {...}}
//	PATCH {base}/users/{id}/metadata  <- {"private_metadata": {...}} (merge)
type HTTPMetadataStore struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewHTTPMetadataStore(baseURL, secretKey string, timeout time.Duration) *HTTPMetadataStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPMetadataStore{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type userMetadataPayload struct {
	PrivateMetadata map[string]any `json:"private_metadata"`
}

func (s *HTTPMetadataStore) PrivateMetadata(
	ctx context.Context,
	identityID string,
) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/users/%s", s.baseURL, url.PathEscape(identityID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}

	var payload userMetadataPayload
	if err := s.do(req, &payload); err != nil {
		return nil, fmt.Errorf("get private metadata: %w", err)
	}

	if payload.PrivateMetadata == nil {
		payload.PrivateMetadata = map[string]any{}
	}

	return payload.PrivateMetadata, nil
}

func (s *HTTPMetadataStore) SetPrivateMetadata(
	ctx context.Context,
	identityID string,
	values map[string]any,
) error {
	endpoint := fmt.Sprintf("%s/users/%s/metadata", s.baseURL, url.PathEscape(identityID))

	body, err := json.Marshal(userMetadataPayload{PrivateMetadata: values})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := s.do(req, nil); err != nil {
		return fmt.Errorf("set private metadata: %w", err)
	}

	return nil
}

func (s *HTTPMetadataStore) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("identity: %w", core.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: provider rejected credentials (status %d)", ErrProvider, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // diagnostic only
		return fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}

	return nil
}

// MemoryMetadataStore keeps metadata in process. Used offline and in tests.
type MemoryMetadataStore struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{data: make(map[string]map[string]any)}
}

func (s *MemoryMetadataStore) PrivateMetadata(
	_ context.Context,
	identityID string,
) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.data[identityID]), nil
}

func (s *MemoryMetadataStore) SetPrivateMetadata(
	_ context.Context,
	identityID string,
	values map[string]any,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[identityID]
	if !ok {
		current = make(map[string]any, len(values))
		s.data[identityID] = current
	}
	maps.Copy(current, values)

	return nil
}
