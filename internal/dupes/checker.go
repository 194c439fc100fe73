// Package dupes queries an external duplicate registry for releases whose
// name plausibly matches a podcast title. It only surfaces candidates with
// a confidence signal; deciding what counts as a duplicate is up to the
// caller.
package dupes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// ErrNotConfigured is returned when the registry endpoint or API key is
// missing. It is a configuration error and is reported before any network
// call is attempted.
var ErrNotConfigured = errors.New("duplicate registry is not configured")

// Candidate is one registry record that plausibly matches the search name.
type Candidate struct {
	Name       string
	Link       string
	Confidence float64 // 0.0-1.0 name similarity against the search term
}

// Exact reports whether the candidate name matches the search term exactly
// after normalization.
func (c Candidate) Exact() bool { return c.Confidence >= 1.0 }

// Checker is a duplicate-registry API client.
type Checker struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// New creates a Checker for the given registry endpoint. An empty endpoint
// or API key is a fatal configuration error.
func New(registryURL, apiKey string) (*Checker, error) {
	if registryURL == "" {
		return nil, fmt.Errorf("%w: missing registry URL", ErrNotConfigured)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrNotConfigured)
	}
	return &Checker{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		url:        registryURL,
		apiKey:     apiKey,
	}, nil
}

// Check searches the registry for name and returns matching candidates
// ordered by descending confidence. Candidates whose name is exactly
// excludeName (the title currently being processed) are dropped so that
// re-running on an already-registered release does not flag itself. An
// empty result is not an error.
func (c *Checker) Check(ctx context.Context, name, excludeName string) ([]Candidate, error) {
	reqURL := fmt.Sprintf("%s?name=%s", c.url, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("registry search returned %d: %s", resp.StatusCode, body)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode registry response: %w", err)
	}

	var candidates []Candidate
	for _, item := range searchResp.Data {
		candName := item.Attributes.Name
		if excludeName != "" && SameTitle(candName, excludeName) {
			continue
		}
		candidates = append(candidates, Candidate{
			Name:       candName,
			Link:       item.Attributes.DetailsLink,
			Confidence: Similarity(name, candName),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	return candidates, nil
}

// Registry API response types

type searchResponse struct {
	Data []torrentItem `json:"data"`
}

type torrentItem struct {
	Attributes torrentAttributes `json:"attributes"`
}

type torrentAttributes struct {
	Name        string `json:"name"`
	DetailsLink string `json:"details_link"`
}
