package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/vietddude/curator/internal/core/domain"
)

// maxErrorBody bounds how much of a failed response is kept for logging.
const maxErrorBody = 512

// HTTPProvider implements Provider for GraphQL over HTTP.
type HTTPProvider struct {
	*BaseProvider
	endpoint   string
	httpClient *http.Client
}

// NewHTTPProvider creates a new HTTP-based GraphQL provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		BaseProvider: NewBaseProvider(name),
		endpoint:     endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data *struct {
		Page map[string]json.RawMessage `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type pageInfo struct {
	HasNextPage *bool `json:"hasNextPage"`
}

// FetchPage posts the query for one page and decodes the record list named
// after the request's record type.
func (p *HTTPProvider) FetchPage(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	start := time.Now()

	payload, err := json.Marshal(graphQLRequest{Query: req.Query, Variables: req.Variables()})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.RecordFailure()
		return nil, fmt.Errorf("graphql call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.RecordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.RecordFailure()
		if resp.StatusCode == http.StatusTooManyRequests {
			p.Monitor.RecordThrottle(resp.Header.Get("Retry-After"))
		}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	page, err := DecodePage(body, req.RecordType)
	if err != nil {
		p.RecordFailure()
		return nil, err
	}
	page.Number = req.Page

	p.RecordSuccess(time.Since(start))
	return page, nil
}

// DecodePage extracts pageInfo.hasNextPage and the record list from a
// GraphQL Page response. Numbers are preserved as json.Number.
func DecodePage(body []byte, recordType domain.RecordType) (*domain.Page, error) {
	var resp graphQLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if resp.Data == nil || resp.Data.Page == nil {
		if len(resp.Errors) > 0 {
			return nil, &DecodeError{Err: fmt.Errorf("graphql error: %s", resp.Errors[0].Message)}
		}
		return nil, &DecodeError{Err: errors.New("missing data.Page")}
	}

	rawInfo, ok := resp.Data.Page["pageInfo"]
	if !ok {
		return nil, &DecodeError{Err: errors.New("missing pageInfo")}
	}
	var info pageInfo
	if err := json.Unmarshal(rawInfo, &info); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("pageInfo: %w", err)}
	}
	if info.HasNextPage == nil {
		return nil, &DecodeError{Err: errors.New("missing pageInfo.hasNextPage")}
	}

	rawList, ok := resp.Data.Page[string(recordType)]
	if !ok {
		return nil, &DecodeError{Err: fmt.Errorf("missing %s list", recordType)}
	}
	var records []domain.Record
	dec := json.NewDecoder(bytes.NewReader(rawList))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%s list: %w", recordType, err)}
	}
	if records == nil {
		records = []domain.Record{}
	}

	return &domain.Page{
		HasNextPage: *info.HasNextPage,
		Records:     records,
	}, nil
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
