package openai

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

var callCounter atomic.Int64

// TextResponse returns an assistant message with plain text content
func TextResponse(content string) *Response {
	return &Response{
		Body: completion(Message{Role: "assistant", Content: Content(content)}, "stop"),
	}
}

// ToolCallSpec describes one tool call the mock agent should issue
type ToolCallSpec struct {
	Name      string
	Arguments map[string]any
}

// Call is shorthand for a ToolCallSpec
func Call(name string, args map[string]any) ToolCallSpec {
	return ToolCallSpec{Name: name, Arguments: args}
}

// ToolCallResponse returns an assistant message requesting the given tool calls
func ToolCallResponse(calls ...ToolCallSpec) *Response {
	toolCalls := make([]ToolCall, 0, len(calls))
	for _, c := range calls {
		args := c.Arguments
		if args == nil {
			args = map[string]any{}
		}
		raw, _ := json.Marshal(args)
		toolCalls = append(toolCalls, ToolCall{
			ID:   fmt.Sprintf("call_mock_%03d", callCounter.Add(1)),
			Type: "function",
			Function: FunctionCall{
				Name:      c.Name,
				Arguments: string(raw),
			},
		})
	}

	return &Response{
		Body: completion(Message{Role: "assistant", ToolCalls: toolCalls}, "tool_calls"),
	}
}

// ErrorResponse returns an OpenAI-style API error with the given status
func ErrorResponse(statusCode int, message string) *Response {
	return &Response{
		StatusCode: statusCode,
		Error: &APIError{
			Error: APIErrorDetail{
				Message: message,
				Type:    "server_error",
				Code:    "internal_error",
			},
		},
	}
}

// RateLimited returns a 429 error response
func RateLimited() *Response {
	return &Response{
		StatusCode: http.StatusTooManyRequests,
		Error: &APIError{
			Error: APIErrorDetail{
				Message: "Rate limit exceeded. Please retry after some time.",
				Type:    "rate_limit_error",
				Code:    "rate_limit_exceeded",
			},
		},
	}
}

// EmptyChoices returns a completion with no choices
func EmptyChoices() *Response {
	return &Response{
		Body: &ChatCompletionResponse{
			ID:      "chatcmpl-mock-empty",
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Choices: []Choice{},
		},
	}
}

// Delayed wraps r so it is served after delay
func Delayed(r *Response, delay time.Duration) *Response {
	out := *r
	out.Delay = delay
	return &out
}

func completion(msg Message, finishReason string) *ChatCompletionResponse {
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-mock-%d", callCounter.Add(1)),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Choices: []Choice{{
			Index:        0,
			Message:      msg,
			FinishReason: finishReason,
		}},
		Usage: &Usage{
			PromptTokens:     100,
			CompletionTokens: 50,
			TotalTokens:      150,
		},
	}
}
