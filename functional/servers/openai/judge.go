package openai

import (
	"net/http"
	"time"
)

// JudgePass creates a judge reply that passes with the given reason
func JudgePass(reason string) *Response {
	return JudgeText("PASS - " + reason)
}

// JudgeFail creates a judge reply that fails with the given reason
func JudgeFail(reason string) *Response {
	return JudgeText("FAIL - " + reason)
}

// JudgeText creates a judge reply with arbitrary text, for exercising verdict
// parsing with malformed or ambiguous replies
func JudgeText(text string) *Response {
	return TextResponse(text)
}

// JudgeError creates an API error response for the judge
func JudgeError(statusCode int, message string) *Response {
	return ErrorResponse(statusCode, message)
}

// JudgeUnavailable creates a 503 response
func JudgeUnavailable() *Response {
	return ErrorResponse(http.StatusServiceUnavailable, "The judge model is temporarily unavailable")
}

// JudgeTimeout creates a passing reply delayed past the client timeout
func JudgeTimeout(delay time.Duration) *Response {
	return Delayed(JudgePass("This response was delayed"), delay)
}
