package smoke

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bradyops/brady/pkg/remote"
)

// DefaultUserID is the user id sent with every engine query.
const DefaultUserID = "final_verifier_01"

// maxLineSize bounds a single streamed line.
const maxLineSize = 1 << 20

// Target is a deployed agent that answers a single query. onText receives
// text fragments as they arrive; the full answer is returned.
type Target interface {
	Name() string
	Query(ctx context.Context, query string, onText func(string)) (string, error)
}

// EngineURL is the streamQuery endpoint of a hosted agent engine. agentID is
// the full resource name, projects/.../reasoningEngines/....
func EngineURL(location, agentID string) string {
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1beta1/%s:streamQuery", location, agentID)
}

// EngineTarget queries a hosted agent engine through its streamQuery API.
// The HTTP client is expected to attach credentials, see
// remote.GoogleHTTPClient.
type EngineTarget struct {
	URL    string
	UserID string
	Client *http.Client
}

func NewEngineTarget(client *http.Client, location, agentID string) *EngineTarget {
	return &EngineTarget{
		URL:    EngineURL(location, agentID),
		UserID: DefaultUserID,
		Client: client,
	}
}

func (t *EngineTarget) Name() string { return t.URL }

type engineRequest struct {
	Input engineInput `json:"input"`
}

type engineInput struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

func (t *EngineTarget) Query(ctx context.Context, query string, onText func(string)) (string, error) {
	body, err := json.Marshal(engineRequest{Input: engineInput{Message: query, UserID: t.UserID}})
	if err != nil {
		return "", err
	}

	resp, err := post(ctx, t.Client, t.URL, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	logger := zerolog.Ctx(ctx)
	var full strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		chunk := ParseChunk(line)
		if chunk.Kind == ChunkUnrecognized {
			logger.Debug().Str("line", line).Msg("skipping unrecognized stream chunk")
			continue
		}
		if chunk.Text == "" {
			continue
		}
		if onText != nil {
			onText(chunk.Text)
		}
		full.WriteString(chunk.Text)
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("failed to read stream: %w", err)
	}

	return full.String(), nil
}

// ServiceTarget queries a running brady HTTP service.
type ServiceTarget struct {
	URL    string
	Client *http.Client
}

func NewServiceTarget(client *http.Client, url string) *ServiceTarget {
	if client == nil {
		client = http.DefaultClient
	}
	return &ServiceTarget{URL: url, Client: client}
}

func (t *ServiceTarget) Name() string { return t.URL }

func (t *ServiceTarget) Query(ctx context.Context, query string, onText func(string)) (string, error) {
	body, err := json.Marshal(map[string]string{"message": query})
	if err != nil {
		return "", err
	}

	resp, err := post(ctx, t.Client, t.URL, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if onText != nil && out.Response != "" {
		onText(out.Response)
	}
	return out.Response, nil
}

// post sends a JSON body and returns the response, or a *remote.StatusError
// for non-2xx replies.
func post(ctx context.Context, client *http.Client, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &remote.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	return resp, nil
}
