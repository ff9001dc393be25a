package contentservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/anatomy-twin-server/internal/domain"
)

// HTTPClient talks to a remote content service over JSON/HTTP.
//
//	GET /anatomy/{id}
//	GET /anatomy/{id}/symptoms
//	GET /specialties?body_system={system}
//	GET /graph/nodes/{id}/related?relationship=&target_type=
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a rate limited client. A non-positive rate limit
// disables limiting. Requests are bounded by the caller's context only,
// unless config.Timeout sets an explicit per-request ceiling.
func NewHTTPClient(config domain.ContentServiceConfig) *HTTPClient {
	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	httpClient := &http.Client{}
	if config.Timeout > 0 {
		httpClient.Timeout = config.Timeout
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		rateLimit:  rate.NewLimiter(limit, 1),
	}
}

// GetAnatomyRegion fetches the encyclopedia entry, nil when the service
// answers 404.
func (c *HTTPClient) GetAnatomyRegion(ctx context.Context, regionID string) (*domain.AnatomyRegion, error) {
	var region domain.AnatomyRegion
	found, err := c.getJSON(ctx, "/anatomy/"+url.PathEscape(regionID), nil, &region)
	if err != nil || !found {
		return nil, err
	}
	return &region, nil
}

func (c *HTTPClient) GetSymptomsByRegion(ctx context.Context, regionID string) ([]domain.SymptomEntry, error) {
	symptoms := []domain.SymptomEntry{}
	found, err := c.getJSON(ctx, "/anatomy/"+url.PathEscape(regionID)+"/symptoms", nil, &symptoms)
	if err != nil {
		return nil, err
	}
	if !found || symptoms == nil {
		return []domain.SymptomEntry{}, nil
	}
	return symptoms, nil
}

func (c *HTTPClient) GetSpecialtiesForBodySystem(ctx context.Context, system string) ([]domain.MedicalSpecialty, error) {
	specialties := []domain.MedicalSpecialty{}
	found, err := c.getJSON(ctx, "/specialties", url.Values{"body_system": {system}}, &specialties)
	if err != nil {
		return nil, err
	}
	if !found || specialties == nil {
		return []domain.MedicalSpecialty{}, nil
	}
	return specialties, nil
}

func (c *HTTPClient) GetRelated(ctx context.Context, nodeID string, filter RelatedFilter) ([]domain.KnowledgeNode, error) {
	params := url.Values{}
	if filter.Relationship != "" {
		params.Set("relationship", string(filter.Relationship))
	}
	if filter.TargetType != "" {
		params.Set("target_type", string(filter.TargetType))
	}

	nodes := []domain.KnowledgeNode{}
	found, err := c.getJSON(ctx, "/graph/nodes/"+url.PathEscape(nodeID)+"/related", params, &nodes)
	if err != nil {
		return nil, err
	}
	if !found || nodes == nil {
		return []domain.KnowledgeNode{}, nil
	}
	return nodes, nil
}

// getJSON decodes the response body into out. It reports false, nil on 404.
func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, out any) (bool, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limit wait failed: %w", err)
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return false, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, path, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("content service %s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}
	return true, nil
}
