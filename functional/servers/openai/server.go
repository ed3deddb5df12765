package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// MockOpenAIServer implements an OpenAI-compatible /v1/chat/completions endpoint
type MockOpenAIServer struct {
	mu           sync.Mutex
	expectations []*Expectation
	requests     []CapturedRequest
	listener     net.Listener
	server       *http.Server
	fallback     *Response
}

// CapturedRequest stores the full request for assertions
type CapturedRequest struct {
	Raw       ChatCompletionRequest
	Timestamp time.Time
	Matched   bool
	MatchedBy string
}

// Expectation links a matcher to a response. Responses are served in order;
// the last one repeats once the list is exhausted.
type Expectation struct {
	Name      string
	Matcher   RequestMatcher
	Responses []*Response
	Times     int // 0 = unlimited
	matched   int
}

// Response defines what to return
type Response struct {
	Body       *ChatCompletionResponse
	Error      *APIError
	StatusCode int           // Defaults to 200
	Delay      time.Duration // Simulate latency
}

// APIError represents an OpenAI API error response
type APIError struct {
	Error APIErrorDetail `json:"error"`
}

// APIErrorDetail contains the error details
type APIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// NewMockOpenAIServer creates a new mock server (not started)
func NewMockOpenAIServer() *MockOpenAIServer {
	return &MockOpenAIServer{}
}

// Start listens on a random local port and returns the base URL
func (s *MockOpenAIServer) Start() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to listen on random port: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	s.server = &http.Server{Handler: mux}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("OpenAI mock server error: %v\n", err)
		}
	}()

	return s.URL(), nil
}

// Stop gracefully stops the server
func (s *MockOpenAIServer) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// URL returns the base URL including the /v1 path, as OpenAI clients expect.
func (s *MockOpenAIServer) URL() string {
	if s.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s/v1", s.listener.Addr().String())
}

// Expect adds an expectation. Expectations are tried in the order added.
func (s *MockOpenAIServer) Expect(e *Expectation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Name == "" {
		e.Name = fmt.Sprintf("expectation-%d", len(s.expectations)+1)
	}
	s.expectations = append(s.expectations, e)
}

// On is shorthand for an unnamed, unlimited expectation.
func (s *MockOpenAIServer) On(matcher RequestMatcher, responses ...*Response) {
	s.Expect(&Expectation{Matcher: matcher, Responses: responses})
}

// SetFallback sets the response when no expectation matches
func (s *MockOpenAIServer) SetFallback(r *Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = r
}

// Requests returns all captured requests
func (s *MockOpenAIServer) Requests() []CapturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CapturedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsFor returns the captured requests addressed to model.
func (s *MockOpenAIServer) RequestsFor(model string) []CapturedRequest {
	var out []CapturedRequest
	for _, r := range s.Requests() {
		if r.Raw.Model == model {
			out = append(out, r)
		}
	}
	return out
}

// RequestCount returns the number of captured requests
func (s *MockOpenAIServer) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastRequest returns the most recent captured request, or nil if none
func (s *MockOpenAIServer) LastRequest() *CapturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	req := s.requests[len(s.requests)-1]
	return &req
}

// Reset clears all expectations and captured requests
func (s *MockOpenAIServer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectations = nil
	s.requests = nil
	s.fallback = nil
}

func (s *MockOpenAIServer) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "Invalid JSON: "+err.Error())
		return
	}

	captured := CapturedRequest{Raw: req, Timestamp: time.Now()}

	s.mu.Lock()
	var response *Response
	for _, exp := range s.expectations {
		if exp.Times > 0 && exp.matched >= exp.Times {
			continue
		}
		if !exp.Matcher.Matches(&req) {
			continue
		}

		if len(exp.Responses) > 0 {
			idx := min(exp.matched, len(exp.Responses)-1)
			response = exp.Responses[idx]
		}
		exp.matched++
		captured.Matched = true
		captured.MatchedBy = exp.Name
		break
	}

	if response == nil && s.fallback != nil {
		response = s.fallback
		captured.Matched = true
		captured.MatchedBy = "_fallback"
	}

	s.requests = append(s.requests, captured)
	s.mu.Unlock()

	if response == nil {
		writeError(w, http.StatusInternalServerError, "server_error", "No matching expectation found for request")
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	if response.Error != nil {
		statusCode := response.StatusCode
		if statusCode == 0 {
			statusCode = http.StatusInternalServerError
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(response.Error)
		return
	}

	if response.Body == nil {
		writeError(w, http.StatusInternalServerError, "server_error", "Expectation matched but no response configured")
		return
	}

	body := *response.Body
	if body.Model == "" {
		body.Model = req.Model
	}
	statusCode := response.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, statusCode int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(APIError{
		Error: APIErrorDetail{
			Message: message,
			Type:    errType,
		},
	})
}
