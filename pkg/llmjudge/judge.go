package llmjudge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"

	"github.com/bradyops/brady/pkg/agent"
	"github.com/bradyops/brady/pkg/remote"
)

// LLMJudge grades conversations against success criteria.
type LLMJudge interface {
	// Grade judges a full multi-turn transcript
	Grade(ctx context.Context, transcript *agent.Transcript, criteria string) *Verdict
	// GradeAnswer judges a single question and answer pair
	GradeAnswer(ctx context.Context, question, answer, criteria string) *Verdict
	ModelName() string
}

// Judge is an LLMJudge backed by an OpenAI-compatible chat completions
// endpoint. It never shares a client or model with the agent under test.
type Judge struct {
	client      *openai.Client
	model       shared.ChatModel
	temperature float64
	policy      remote.Policy
}

var _ LLMJudge = &Judge{}

// NewJudge creates a judge that calls model through client.
func NewJudge(client *openai.Client, model string, temperature float64, policy remote.Policy) (*Judge, error) {
	if client == nil {
		return nil, errors.New("judge client is required")
	}
	if model == "" {
		return nil, errors.New("judge model is required")
	}

	return &Judge{
		client:      client,
		model:       shared.ChatModel(model),
		temperature: temperature,
		policy:      policy,
	}, nil
}

func (j *Judge) ModelName() string {
	return string(j.model)
}

func (j *Judge) Grade(ctx context.Context, transcript *agent.Transcript, criteria string) *Verdict {
	prompt, err := BuildTranscriptPrompt(TranscriptPromptData{
		Transcript: transcript.String(),
		Criteria:   criteria,
	})
	if err != nil {
		return &Verdict{Error: fmt.Sprintf("failed to build judge prompt: %v", err)}
	}

	return j.judge(ctx, prompt)
}

func (j *Judge) GradeAnswer(ctx context.Context, question, answer, criteria string) *Verdict {
	prompt, err := BuildAnswerPrompt(AnswerPromptData{
		Question: question,
		Answer:   answer,
		Criteria: criteria,
	})
	if err != nil {
		return &Verdict{Error: fmt.Sprintf("failed to build judge prompt: %v", err)}
	}

	return j.judge(ctx, prompt)
}

// judge sends prompt and parses the reply. A judge that cannot be reached
// after retries yields a failing verdict carrying the error.
func (j *Judge) judge(ctx context.Context, prompt string) *Verdict {
	logger := zerolog.Ctx(ctx)

	params := openai.ChatCompletionNewParams{
		Model: j.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(j.temperature),
	}

	completion, err := remote.Do(ctx, "judge chat completion", j.policy, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return j.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		logger.Error().Err(err).Str("model", j.ModelName()).Msg("judge call failed")
		return &Verdict{Error: err.Error(), Rationale: "judge unavailable"}
	}

	if len(completion.Choices) == 0 {
		return &Verdict{Error: "judge returned no completion choices"}
	}

	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	v := ParseVerdict(reply)
	logger.Debug().Bool("passed", v.Passed).Str("reply", reply).Msg("judge replied")
	return v
}
