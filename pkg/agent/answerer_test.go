package agent_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rfcpilot/rfcpilot/pkg/agent"
	"github.com/rfcpilot/rfcpilot/pkg/rag"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
)

type fakeChunkStore struct {
	searchResults []rag.ScoredChunk
	listResults   []rag.Chunk
}

func (f *fakeChunkStore) Search(_ context.Context, _ rag.SearchRequest) ([]rag.ScoredChunk, error) {
	return f.searchResults, nil
}

func (f *fakeChunkStore) ListBySources(_ context.Context, _ []string) ([]rag.Chunk, error) {
	return f.listResults, nil
}

type fakeModel struct {
	response     string
	lastMessages []llms.MessageContent
}

func (f *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.response, nil
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.lastMessages = messages

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StreamingFunc != nil {
		if err := opts.StreamingFunc(ctx, []byte(f.response)); err != nil {
			return nil, err
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.response}},
	}, nil
}

func messageText(messages []llms.MessageContent, role llms.ChatMessageType) string {
	var parts []string
	for _, msg := range messages {
		if msg.Role != role {
			continue
		}
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				parts = append(parts, text.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

func newTestAnswerer(t *testing.T, model llms.Model, store rag.ChunkStore) *agent.Answerer {
	t.Helper()

	embedder, err := rag.NewEmbedder(fakeEmbedderModel{})
	if err != nil {
		t.Fatalf("create embedder: %v", err)
	}

	logger := zerolog.Nop()
	retriever := rag.NewRetriever(embedder, store, &logger)
	return agent.NewAnswerer(model, retriever, &logger)
}

func TestAnswerer_Answer(t *testing.T) {
	ctx := context.Background()

	excerpts := []rag.ScoredChunk{
		{Chunk: rag.Chunk{Source: "rfc793", Seq: 0, Content: "TCP provides reliable delivery."}, Similarity: 0.91},
		{Chunk: rag.Chunk{Source: "rfc793", Seq: 3, Content: "Sequence numbers order the byte stream."}, Similarity: 0.84},
	}

	t.Run("answers from excerpts", func(t *testing.T) {
		model := &fakeModel{response: "TCP is reliable [1]."}
		answerer := newTestAnswerer(t, model, &fakeChunkStore{searchResults: excerpts})

		answer, err := answerer.Answer(ctx, agent.AnswerRequest{Question: "Is TCP reliable?"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if answer.Text != "TCP is reliable [1]." {
			t.Errorf("unexpected answer: %q", answer.Text)
		}
		if len(answer.Excerpts) != 2 {
			t.Errorf("expected 2 excerpts, got %d", len(answer.Excerpts))
		}

		prompt := messageText(model.lastMessages, llms.ChatMessageTypeHuman)
		if !strings.Contains(prompt, "TCP provides reliable delivery.") {
			t.Errorf("expected excerpt content in prompt, got %q", prompt)
		}
		if !strings.Contains(prompt, "[1] (rfc793#0") {
			t.Errorf("expected numbered excerpt header in prompt, got %q", prompt)
		}
		if !strings.Contains(prompt, "Is TCP reliable?") {
			t.Errorf("expected question in prompt, got %q", prompt)
		}
	})

	t.Run("no excerpts", func(t *testing.T) {
		model := &fakeModel{response: "unused"}
		answerer := newTestAnswerer(t, model, &fakeChunkStore{})

		_, err := answerer.Answer(ctx, agent.AnswerRequest{Question: "Is TCP reliable?"})
		if !errors.Is(err, agent.ErrNoExcerpts) {
			t.Fatalf("expected ErrNoExcerpts, got %v", err)
		}
	})

	t.Run("preset instruction lands in the prompt", func(t *testing.T) {
		model := &fakeModel{response: "summary"}
		answerer := newTestAnswerer(t, model, &fakeChunkStore{searchResults: excerpts})

		_, err := answerer.Answer(ctx, agent.AnswerRequest{
			Question: "Summarize TCP.",
			Preset:   "summary",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		prompt := messageText(model.lastMessages, llms.ChatMessageTypeHuman)
		if !strings.Contains(prompt, "Summarize the main content") {
			t.Errorf("expected preset instruction in prompt, got %q", prompt)
		}
	})

	t.Run("unknown preset", func(t *testing.T) {
		model := &fakeModel{response: "unused"}
		answerer := newTestAnswerer(t, model, &fakeChunkStore{searchResults: excerpts})

		_, err := answerer.Answer(ctx, agent.AnswerRequest{
			Question: "Summarize TCP.",
			Preset:   "limerick",
		})
		if err == nil {
			t.Fatal("expected error for unknown preset")
		}
	})

	t.Run("custom system suffix", func(t *testing.T) {
		model := &fakeModel{response: "oui"}
		answerer := newTestAnswerer(t, model, &fakeChunkStore{searchResults: excerpts})

		_, err := answerer.Answer(ctx, agent.AnswerRequest{
			Question: "Is TCP reliable?",
			System:   "Answer in French.",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		system := messageText(model.lastMessages, llms.ChatMessageTypeSystem)
		if !strings.Contains(system, "Answer in French.") {
			t.Errorf("expected custom suffix in system prompt, got %q", system)
		}
	})

	t.Run("streaming", func(t *testing.T) {
		model := &fakeModel{response: "streamed answer"}
		answerer := newTestAnswerer(t, model, &fakeChunkStore{searchResults: excerpts})

		var streamed strings.Builder
		answer, err := answerer.Answer(ctx, agent.AnswerRequest{
			Question: "Is TCP reliable?",
			StreamFunc: func(_ context.Context, chunk []byte) error {
				streamed.Write(chunk)
				return nil
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if streamed.String() != "streamed answer" {
			t.Errorf("expected streamed chunks, got %q", streamed.String())
		}
		if answer.Text != "streamed answer" {
			t.Errorf("expected full answer text, got %q", answer.Text)
		}
	})
}

func TestAnswerer_AnswerStructured(t *testing.T) {
	ctx := context.Background()

	excerpts := []rag.ScoredChunk{
		{Chunk: rag.Chunk{Source: "rfc793", Seq: 0, Content: "TCP provides reliable delivery."}, Similarity: 0.91},
	}

	t.Run("parses model output", func(t *testing.T) {
		model := &fakeModel{response: `{"answer": "TCP is reliable.", "sources": ["rfc793"]}`}
		answerer := newTestAnswerer(t, model, &fakeChunkStore{searchResults: excerpts})

		answer, err := answerer.AnswerStructured(ctx, agent.AnswerRequest{Question: "Is TCP reliable?"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if answer.Text != "TCP is reliable." {
			t.Errorf("unexpected answer: %q", answer.Text)
		}
		if len(answer.CitedSources) != 1 || answer.CitedSources[0] != "rfc793" {
			t.Errorf("unexpected cited sources: %v", answer.CitedSources)
		}
	})

	t.Run("accepts fenced output", func(t *testing.T) {
		model := &fakeModel{response: "```json\n{\"answer\": \"TCP is reliable.\", \"sources\": [\"rfc793\"]}\n```"}
		answerer := newTestAnswerer(t, model, &fakeChunkStore{searchResults: excerpts})

		answer, err := answerer.AnswerStructured(ctx, agent.AnswerRequest{Question: "Is TCP reliable?"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if answer.Text != "TCP is reliable." {
			t.Errorf("unexpected answer: %q", answer.Text)
		}
	})

	t.Run("malformed output", func(t *testing.T) {
		model := &fakeModel{response: "sorry, I cannot answer that"}
		answerer := newTestAnswerer(t, model, &fakeChunkStore{searchResults: excerpts})

		if _, err := answerer.AnswerStructured(ctx, agent.AnswerRequest{Question: "Is TCP reliable?"}); err == nil {
			t.Fatal("expected error for malformed output")
		}
	})
}
