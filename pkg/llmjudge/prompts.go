package llmjudge

import (
	"bytes"
	"text/template"
)

var (
	transcriptPromptTemplate = template.Must(template.New("transcriptPrompt").Parse(
		`You are a QA Judge. Evaluate this conversation.

--- CONVERSATION LOG ---
{{.Transcript}}
--- SUCCESS CRITERIA ---
{{.Criteria}}

--- TASK ---
Did the Agent meet the criteria?
Strictly reply with 'PASS' or 'FAIL', followed by a short reason.
`))

	answerPromptTemplate = template.Must(template.New("answerPrompt").Parse(
		`You are a QA Judge. Evaluate this answer.

--- QUESTION ---
{{.Question}}

--- AGENT ANSWER ---
{{.Answer}}

--- SUCCESS CRITERIA ---
{{.Criteria}}

--- TASK ---
Did the Agent meet the criteria?
Strictly reply with 'PASS' or 'FAIL', followed by a short reason.
`))
)

type TranscriptPromptData struct {
	// Transcript is the rendered "User: ...\nAgent: ...\n" log
	Transcript string
	Criteria   string
}

type AnswerPromptData struct {
	Question string
	Answer   string
	Criteria string
}

func BuildTranscriptPrompt(data TranscriptPromptData) (string, error) {
	var out bytes.Buffer
	err := transcriptPromptTemplate.Execute(&out, data)
	if err != nil {
		return "", err
	}

	return out.String(), nil
}

func BuildAnswerPrompt(data AnswerPromptData) (string, error) {
	var out bytes.Buffer
	err := answerPromptTemplate.Execute(&out, data)
	if err != nil {
		return "", err
	}

	return out.String(), nil
}
