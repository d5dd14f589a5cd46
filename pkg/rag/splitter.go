package rag

import (
	"fmt"

	"github.com/rfcpilot/rfcpilot/pkg/corpus"
	"github.com/tmc/langchaingo/textsplitter"
)

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts documents into overlapping chunks sized for embedding.
type Splitter struct {
	inner textsplitter.RecursiveCharacter
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(defaultSeparators),
		),
	}
}

// SplitText splits raw text into chunks.
func (s *Splitter) SplitText(text string) ([]string, error) {
	chunks, err := s.inner.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text: %w", err)
	}
	return chunks, nil
}

// SplitDocument splits a document into sequenced chunks carrying its source.
func (s *Splitter) SplitDocument(doc corpus.Document) ([]Chunk, error) {
	texts, err := s.SplitText(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("split document %s: %w", doc.Source, err)
	}

	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{
			Source:  doc.Source,
			Seq:     i,
			Content: text,
		}
	}

	return chunks, nil
}
