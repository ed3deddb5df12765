package llmjudge

import (
	"strings"
	"unicode"
)

const (
	tokenPass = "PASS"
	tokenFail = "FAIL"
)

// Verdict is the judge's decision on one test case.
type Verdict struct {
	Passed    bool   `json:"passed"`
	Rationale string `json:"rationale"`
	// Raw is the unmodified judge reply
	Raw string `json:"raw,omitempty"`
	// Error is set when the judge could not be reached or gave no usable reply
	Error string `json:"error,omitempty"`
}

// ParseVerdict reads a judge reply. The first token, once surrounding
// markdown and punctuation is trimmed, must be exactly PASS for the verdict
// to pass. Anything else, including an empty reply, fails.
func ParseVerdict(reply string) *Verdict {
	v := &Verdict{Raw: reply}

	text := strings.TrimSpace(reply)
	if text == "" {
		v.Error = "judge returned an empty reply"
		return v
	}

	token, rest := splitLeadingToken(text)
	switch token {
	case tokenPass:
		v.Passed = true
		v.Rationale = rest
	case tokenFail:
		v.Rationale = rest
	default:
		v.Rationale = text
		v.Error = "judge reply did not start with PASS or FAIL"
	}

	return v
}

// splitLeadingToken returns the first word of text stripped of markdown
// emphasis and punctuation, plus the remaining text with leading
// separators removed.
func splitLeadingToken(text string) (string, string) {
	end := strings.IndexFunc(text, unicode.IsSpace)
	if end < 0 {
		end = len(text)
	}

	word := text[:end]
	rest := text[end:]

	// "PASS:" or "**PASS**-" style suffixes stay glued to the word; move
	// them into the remainder.
	token := strings.TrimFunc(word, isDecoration)
	if idx := strings.IndexFunc(token, isDecoration); idx >= 0 {
		rest = token[idx:] + rest
		token = token[:idx]
	}

	rest = strings.TrimLeftFunc(rest, func(r rune) bool {
		return unicode.IsSpace(r) || isDecoration(r)
	})

	return token, strings.TrimSpace(rest)
}

func isDecoration(r rune) bool {
	switch r {
	case '*', '_', '`', '#', '>', '"', '\'', ':', '-', '.', ',', ';', '!', '[', ']', '(', ')':
		return true
	}
	return unicode.Is(unicode.Pd, r)
}
