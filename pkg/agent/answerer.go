package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/rfcpilot/rfcpilot/pkg/prompts"
	"github.com/rfcpilot/rfcpilot/pkg/rag"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/outputparser"
	langprompts "github.com/tmc/langchaingo/prompts"
)

// ErrNoExcerpts is returned when retrieval finds nothing relevant to
// ground an answer in.
var ErrNoExcerpts = errors.New("no relevant excerpts found")

const answerTemplate = `Answer the question using only the numbered document excerpts below.
{{.instruction}}
## Document excerpts

{{.excerpts}}

## Question

{{.question}}
`

const structuredAnswerTemplate = `Answer the question using only the numbered document excerpts below.
{{.instruction}}
## Output format

{{.output_format_instructions}}

## Document excerpts

{{.excerpts}}

## Question

{{.question}}
`

// Answerer answers questions grounded in retrieved corpus excerpts.
type Answerer struct {
	model     llms.Model
	retriever *rag.Retriever
	logger    *zerolog.Logger
}

func NewAnswerer(model llms.Model, retriever *rag.Retriever, logger *zerolog.Logger) *Answerer {
	return &Answerer{
		model:     model,
		retriever: retriever,
		logger:    logger,
	}
}

// AnswerRequest describes one question.
type AnswerRequest struct {
	Question string
	// Preset selects a predefined instruction (see prompts.PresetKeys).
	Preset string
	// System is appended to the system prompt.
	System        string
	Sources       []string
	K             int
	MinSimilarity float64
	// StreamFunc receives answer tokens as they are generated.
	// Ignored in structured mode.
	StreamFunc func(ctx context.Context, chunk []byte) error
}

// Answer is the generated response with its supporting excerpts.
type Answer struct {
	Text     string
	Excerpts []rag.ScoredChunk
	// CitedSources is only populated by AnswerStructured.
	CitedSources []string
}

type structuredAnswer struct {
	Answer  string   `json:"answer" describe:"Markdown answer grounded in the excerpts"`
	Sources []string `json:"sources" describe:"Source identifiers of the cited excerpts"`
}

// Answer retrieves relevant excerpts and generates a free-form answer.
func (a *Answerer) Answer(ctx context.Context, req AnswerRequest) (*Answer, error) {
	excerpts, instruction, err := a.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	template := langprompts.NewPromptTemplate(answerTemplate, []string{
		"instruction",
		"excerpts",
		"question",
	})

	prompt, err := template.Format(map[string]any{
		"instruction": instruction,
		"excerpts":    formatExcerpts(excerpts),
		"question":    req.Question,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}

	var callOpts []llms.CallOption
	if req.StreamFunc != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(req.StreamFunc))
	}

	out, err := a.generate(ctx, req.System, prompt, callOpts...)
	if err != nil {
		a.logGenerateError(prompt, err)
		return nil, fmt.Errorf("generate completion: %w", err)
	}

	return &Answer{
		Text:     out,
		Excerpts: excerpts,
	}, nil
}

// AnswerStructured answers with a parsed JSON payload carrying the cited
// sources alongside the answer text.
func (a *Answerer) AnswerStructured(ctx context.Context, req AnswerRequest) (*Answer, error) {
	excerpts, instruction, err := a.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	parser, err := outputparser.NewDefined(structuredAnswer{})
	if err != nil {
		return nil, fmt.Errorf("creating parser: %w", err)
	}

	template := langprompts.NewPromptTemplate(structuredAnswerTemplate, []string{
		"instruction",
		"output_format_instructions",
		"excerpts",
		"question",
	})

	prompt, err := template.Format(map[string]any{
		"instruction":                instruction,
		"output_format_instructions": parser.GetFormatInstructions(),
		"excerpts":                   formatExcerpts(excerpts),
		"question":                   req.Question,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}

	out, err := a.generate(ctx, req.System, prompt)
	if err != nil {
		a.logGenerateError(prompt, err)
		return nil, fmt.Errorf("generate completion: %w", err)
	}

	response, err := parseResponse(parser, out)
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("prompt", prompt).
			Str("output", out).
			Msg("Error parsing structured answer response")
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &Answer{
		Text:         response.Answer,
		Excerpts:     excerpts,
		CitedSources: response.Sources,
	}, nil
}

func (a *Answerer) prepare(ctx context.Context, req AnswerRequest) ([]rag.ScoredChunk, string, error) {
	instruction := ""
	if req.Preset != "" {
		preset, err := prompts.Preset(req.Preset)
		if err != nil {
			return nil, "", err
		}
		instruction = "\n## Instructions\n\n" + preset + "\n"
	}

	excerpts, err := a.retriever.TopK(ctx, req.Question, rag.TopKOptions{
		K:               req.K,
		Sources:         req.Sources,
		MinSimilarity:   req.MinSimilarity,
		KeywordFallback: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("retrieve excerpts: %w", err)
	}

	if len(excerpts) == 0 {
		return nil, "", ErrNoExcerpts
	}

	return excerpts, instruction, nil
}

func (a *Answerer) generate(ctx context.Context, customSystem, prompt string, options ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompts.System(customSystem)),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := a.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	return resp.Choices[0].Content, nil
}

func formatExcerpts(excerpts []rag.ScoredChunk) string {
	var sb strings.Builder
	for i, excerpt := range excerpts {
		fmt.Fprintf(&sb, "[%d] (%s#%d, similarity %.2f)\n%s\n\n", i+1, excerpt.Source, excerpt.Seq, excerpt.Similarity, excerpt.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func parseResponse[T any](parser outputparser.Defined[T], response string) (*T, error) {
	// Parser expects backticks but the output usually doesn't contain them
	wrappedRes := response
	if !strings.HasPrefix(response, "```json") {
		wrappedRes = fmt.Sprintf("```json\n%s\n```", response)
	}
	out, err := parser.Parse(wrappedRes)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	return &out, nil
}

func (a *Answerer) logGenerateError(prompt string, err error) {
	a.logger.Error().
		Err(err).
		// Log in base64 for a more compact representation
		Str("prompt_base64", base64.StdEncoding.EncodeToString([]byte(prompt))).
		Int("prompt_bytes", len(prompt)).
		Msg("Error generating completion")
}
