package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	AuthAPIKey = "apikey"
	AuthGoogle = "google"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// Endpoint identifies an OpenAI-compatible chat completions service.
type Endpoint struct {
	Model     string
	BaseURL   string
	APIKey    string
	Auth      string
	ProjectID string
	Location  string
}

// VertexOpenAIBaseURL returns the OpenAI-compatible Vertex AI endpoint for a
// project and location.
func VertexOpenAIBaseURL(project, location string) string {
	host := fmt.Sprintf("%s-aiplatform.googleapis.com", location)
	if location == "global" {
		host = "aiplatform.googleapis.com"
	}
	return fmt.Sprintf("https://%s/v1beta1/projects/%s/locations/%s/endpoints/openapi", host, project, location)
}

// ResolvedBaseURL returns the configured base URL, deriving the Vertex AI
// one for google auth when none is set.
func (e Endpoint) ResolvedBaseURL() string {
	if e.BaseURL != "" {
		return e.BaseURL
	}
	if e.Auth == AuthGoogle && e.ProjectID != "" && e.Location != "" {
		return VertexOpenAIBaseURL(e.ProjectID, e.Location)
	}
	return ""
}

// GoogleTokenSource returns application default credentials scoped for
// Google Cloud.
func GoogleTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to create google token source: %w", err)
	}
	return ts, nil
}

// GoogleHTTPClient returns an HTTP client that attaches a refreshed bearer
// token to each request.
func GoogleHTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := GoogleTokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// NewOpenAIClient builds a client for the endpoint. SDK-level retries are
// disabled; callers retry through Do.
func NewOpenAIClient(ctx context.Context, e Endpoint) (*openai.Client, error) {
	baseURL := e.ResolvedBaseURL()
	if baseURL == "" {
		return nil, fmt.Errorf("no base URL configured for model %q", e.Model)
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}

	switch e.Auth {
	case AuthGoogle:
		httpClient, err := GoogleHTTPClient(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithHTTPClient(httpClient), option.WithAPIKey("unused"))
	case "", AuthAPIKey:
		if e.APIKey == "" {
			return nil, fmt.Errorf("no API key configured for model %q", e.Model)
		}
		opts = append(opts, option.WithAPIKey(e.APIKey))
	default:
		return nil, fmt.Errorf("unknown auth mode %q", e.Auth)
	}

	client := openai.NewClient(opts...)
	return &client, nil
}
