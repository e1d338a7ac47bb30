package retriever

import (
	"fmt"
	"strings"

	"github.com/clipperhouse/uax29/sentences"
	"github.com/clipperhouse/uax29/words"
	"github.com/pkoukk/tiktoken-go"
)

const chunkerEncoding = "cl100k_base"

// TokenCounter counts tokens in a piece of text. The chunk budget is
// expressed in these tokens.
type TokenCounter interface {
	Count(p []byte) int
}

// TikTokenCounter counts tokens with the tokenization scheme used by
// OpenAI models, so chunk budgets line up with embedding model limits.
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading %s encoding: %w", encoding, err)
	}
	return &TikTokenCounter{tke: tke}, nil
}

func (c *TikTokenCounter) Count(p []byte) int {
	return len(c.tke.Encode(string(p), nil, nil))
}

// WordsTokenCounter approximates tokens by Unicode word boundaries.
type WordsTokenCounter struct{}

func (WordsTokenCounter) Count(p []byte) int {
	return len(words.SegmentAll(p))
}

// Chunker splits text into token-budgeted chunks along sentence boundaries,
// with a configurable token overlap between consecutive chunks.
type Chunker struct {
	chunkSize int
	overlap   int
	counter   TokenCounter
}

func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	counter, err := NewTikTokenCounter(chunkerEncoding)
	if err != nil {
		return nil, err
	}
	return NewChunkerWithCounter(chunkSize, overlap, counter), nil
}

func NewChunkerWithCounter(chunkSize, overlap int, counter TokenCounter) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap, counter: counter}
}

// TokenCount returns the number of tokens in text.
func (c *Chunker) TokenCount(text string) int {
	return c.counter.Count([]byte(text))
}

// Split segments text into sentences and packs them into chunks of at most
// chunkSize tokens. Each chunk after the first starts with the trailing
// sentences of the previous chunk covering at least the overlap budget. A
// single sentence over the budget becomes a chunk of its own.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var parts []string
	var tokens []int
	for _, seg := range sentences.SegmentAll([]byte(text)) {
		s := strings.TrimSpace(string(seg))
		if s == "" {
			continue
		}
		parts = append(parts, s)
		tokens = append(tokens, c.counter.Count([]byte(s)))
	}
	if len(parts) == 0 {
		return nil
	}

	var chunks []string
	var cur []string
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(cur, " "))
	}

	for i, part := range parts {
		if curTokens+tokens[i] > c.chunkSize && curTokens > 0 {
			flush()

			// Carry trailing sentences into the next chunk until the
			// overlap budget is covered. cur[0] maps to parts[base].
			base := i - len(cur)
			start := len(cur)
			overlapTokens := 0
			for start > 0 && overlapTokens < c.overlap {
				start--
				overlapTokens += tokens[base+start]
			}
			cur = append([]string(nil), cur[start:]...)
			curTokens = overlapTokens
		}
		cur = append(cur, part)
		curTokens += tokens[i]
	}
	flush()

	return chunks
}
