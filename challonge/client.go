package challonge

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
)

const (
	BaseURL        = "https://api.challonge.com/v1"
	DefaultTimeout = 15 * time.Second
)

var ErrMissingAPIKey = errors.New("challonge API key is not set")

// APIError carries the status Challonge answered with, so callers can tell a
// missing tournament from a bad key.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("challonge error (%d): %s", e.StatusCode, e.Message)
}

// Client defines the read-only slice of the Challonge v1 API the bot uses.
type Client interface {
	GetTournament(ctx context.Context, slug string) (*Tournament, error)
	GetParticipants(ctx context.Context, slug string) ([]Participant, error)
	GetMatches(ctx context.Context, slug string) ([]Match, error)
}

type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPClient(apiKey string) Client {
	return &HTTPClient{
		baseURL: BaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

func (c *HTTPClient) makeRequest(ctx context.Context, path string, result interface{}) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	query := url.Values{}
	query.Set("api_key", c.apiKey)
	fullURL := fmt.Sprintf("%s%s.json?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func statusError(status int, body []byte) *APIError {
	switch status {
	case http.StatusUnauthorized:
		return &APIError{StatusCode: status, Message: "unauthorized: invalid API key or insufficient permissions"}
	case http.StatusNotFound:
		return &APIError{StatusCode: status, Message: "not found: tournament or record does not exist"}
	case http.StatusNotAcceptable:
		return &APIError{StatusCode: status, Message: "unsupported format (request JSON or XML)"}
	case http.StatusUnprocessableEntity:
		var payload struct {
			Errors []string `json:"errors"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && len(payload.Errors) > 0 {
			return &APIError{StatusCode: status, Message: "validation error: " + strings.Join(payload.Errors, "; ")}
		}
		return &APIError{StatusCode: status, Message: "validation error: " + string(body)}
	default:
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return &APIError{StatusCode: status, Message: snippet}
	}
}

func (c *HTTPClient) GetTournament(ctx context.Context, slug string) (*Tournament, error) {
	var envelope tournamentEnvelope
	if err := c.makeRequest(ctx, fmt.Sprintf("/tournaments/%s", slug), &envelope); err != nil {
		return nil, fmt.Errorf("failed to get tournament %s: %w", slug, err)
	}
	return &envelope.Tournament, nil
}

func (c *HTTPClient) GetParticipants(ctx context.Context, slug string) ([]Participant, error) {
	var envelopes []participantEnvelope
	if err := c.makeRequest(ctx, fmt.Sprintf("/tournaments/%s/participants", slug), &envelopes); err != nil {
		return nil, fmt.Errorf("failed to get participants of %s: %w", slug, err)
	}
	participants := make([]Participant, 0, len(envelopes))
	for _, e := range envelopes {
		participants = append(participants, e.Participant)
	}
	return participants, nil
}

func (c *HTTPClient) GetMatches(ctx context.Context, slug string) ([]Match, error) {
	var envelopes []matchEnvelope
	if err := c.makeRequest(ctx, fmt.Sprintf("/tournaments/%s/matches", slug), &envelopes); err != nil {
		return nil, fmt.Errorf("failed to get matches of %s: %w", slug, err)
	}
	matches := make([]Match, 0, len(envelopes))
	for _, e := range envelopes {
		matches = append(matches, e.Match)
	}
	return matches, nil
}
