package openai

import (
	"regexp"
	"strings"
)

// RequestMatcher determines if a request matches an expectation
type RequestMatcher interface {
	Matches(req *ChatCompletionRequest) bool
}

// MatchFunc creates a matcher from a function
type MatchFunc func(req *ChatCompletionRequest) bool

func (f MatchFunc) Matches(req *ChatCompletionRequest) bool {
	return f(req)
}

// AnyRequest matches all requests
func AnyRequest() RequestMatcher {
	return MatchFunc(func(*ChatCompletionRequest) bool { return true })
}

// ModelIs matches requests to a specific model
func ModelIs(model string) RequestMatcher {
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		return req.Model == model
	})
}

// MessageContains matches if any message content contains substring
func MessageContains(substring string) RequestMatcher {
	return messageContains("", substring)
}

// SystemMessageContains matches system messages containing substring
func SystemMessageContains(substring string) RequestMatcher {
	return messageContains("system", substring)
}

// UserMessageContains matches user messages containing substring
func UserMessageContains(substring string) RequestMatcher {
	return messageContains("user", substring)
}

func messageContains(role, substring string) RequestMatcher {
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		for _, msg := range req.Messages {
			if role != "" && msg.Role != role {
				continue
			}
			if strings.Contains(string(msg.Content), substring) {
				return true
			}
		}
		return false
	})
}

// LastUserMessageContains matches when the most recent user turn contains
// substring. Use it to script per-turn replies in a multi-turn session.
func LastUserMessageContains(substring string) RequestMatcher {
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		return strings.Contains(req.LastUserMessage(), substring)
	})
}

// MessageMatches matches when any message content matches pattern
func MessageMatches(pattern string) RequestMatcher {
	rx := regexp.MustCompile(pattern)
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		for _, msg := range req.Messages {
			if rx.MatchString(string(msg.Content)) {
				return true
			}
		}
		return false
	})
}

// LastMessageRole matches when the final message has the given role. An
// agent follow-up after tool execution ends in a "tool" message.
func LastMessageRole(role string) RequestMatcher {
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		last := req.LastMessage()
		return last != nil && last.Role == role
	})
}

// ToolResultContains matches when the final message is a tool result
// containing substring.
func ToolResultContains(substring string) RequestMatcher {
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		last := req.LastMessage()
		return last != nil && last.Role == "tool" && strings.Contains(string(last.Content), substring)
	})
}

// HasTool matches if the request advertises a specific tool
func HasTool(toolName string) RequestMatcher {
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		for _, tool := range req.Tools {
			if tool.Function.Name == toolName {
				return true
			}
		}
		return false
	})
}

// And combines matchers with AND logic
func And(matchers ...RequestMatcher) RequestMatcher {
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		for _, m := range matchers {
			if !m.Matches(req) {
				return false
			}
		}
		return true
	})
}

// Or combines matchers with OR logic
func Or(matchers ...RequestMatcher) RequestMatcher {
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		for _, m := range matchers {
			if m.Matches(req) {
				return true
			}
		}
		return false
	})
}

// Not negates a matcher
func Not(matcher RequestMatcher) RequestMatcher {
	return MatchFunc(func(req *ChatCompletionRequest) bool {
		return !matcher.Matches(req)
	})
}
