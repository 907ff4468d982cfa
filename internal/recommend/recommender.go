// Package recommend turns recommender candidates into display-ready
// recommendations: it calls the external recommender, joins the ranked
// candidates against the local metadata table and validates the result.
package recommend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vietddude/curator/internal/core/domain"
)

var (
	// ErrInvalidCredential is returned when the recommender rejects our token.
	ErrInvalidCredential = errors.New("invalid recommender credential")

	// ErrRateLimitExceeded is returned when the recommender throttles us.
	ErrRateLimitExceeded = errors.New("recommender rate limit exceeded")

	// ErrSubjectNotFound is returned when the searched user or title does not exist.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrIncompleteJoin is returned when a joined row lacks a display column.
	ErrIncompleteJoin = errors.New("incomplete join")

	// ErrInvalidMode is returned for a mode other than user or anime.
	ErrInvalidMode = errors.New("invalid mode")
)

// Query is one recommender invocation.
type Query struct {
	Search     string `json:"search_str"`
	AnimeMode  bool   `json:"anime_mode"`
	Autoselect bool   `json:"autoselect"`
	Limit      int    `json:"limit"`
}

// NewQuery builds the recommender query for a front-end mode.
func NewQuery(mode domain.Mode, search string, limit int) Query {
	anime := mode == domain.ModeAnime
	return Query{
		Search:     search,
		AnimeMode:  anime,
		Autoselect: anime,
		Limit:      limit,
	}
}

// Recommender produces ranked candidates for a query.
type Recommender interface {
	Run(ctx context.Context, q Query) ([]domain.Candidate, error)
}

// HTTPRecommender calls a recommender service over HTTP.
type HTTPRecommender struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewHTTPRecommender creates a client for <endpoint>/recommend.
func NewHTTPRecommender(endpoint, token string, timeout time.Duration) *HTTPRecommender {
	return &HTTPRecommender{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type recommendResponse struct {
	Results []domain.Candidate `json:"results"`
}

// Run posts the query and returns candidates in ranking order.
func (r *HTTPRecommender) Run(ctx context.Context, q Query) ([]domain.Candidate, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/recommend", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recommender call: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidCredential
	case http.StatusTooManyRequests:
		return nil, ErrRateLimitExceeded
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %q", ErrSubjectNotFound, q.Search)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("recommender returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out recommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode recommender response: %w", err)
	}
	return out.Results, nil
}
