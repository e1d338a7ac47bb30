package retriever

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkerSplitEmpty(t *testing.T) {
	c := NewChunkerWithCounter(10, 0, WordsTokenCounter{})
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n  "))
}

func TestChunkerSplitSingleChunk(t *testing.T) {
	c := NewChunkerWithCounter(100, 10, WordsTokenCounter{})
	chunks := c.Split("Manali is a resort town. It sits in the Kullu valley.")
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "Manali is a resort town.")
	assert.Contains(t, chunks[0], "Kullu valley")
}

func TestChunkerSplitRespectsBudget(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Sentence number %d has exactly seven words. ", i)
	}

	c := NewChunkerWithCounter(50, 0, WordsTokenCounter{})
	chunks := c.Split(b.String())
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, c.TokenCount(chunk), 60,
			"chunk should stay near the token budget: %q", chunk)
	}

	// No sentence goes missing.
	joined := strings.Join(chunks, " ")
	for i := 0; i < 40; i++ {
		assert.Contains(t, joined, fmt.Sprintf("Sentence number %d", i))
	}
}

func TestChunkerSplitOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "Sentence number %d has exactly seven words. ", i)
	}

	c := NewChunkerWithCounter(40, 10, WordsTokenCounter{})
	chunks := c.Split(b.String())
	require.Greater(t, len(chunks), 1)

	// Consecutive chunks share their boundary sentence.
	numbers := regexp.MustCompile(`\d+`)
	for i := 1; i < len(chunks); i++ {
		prev := numbers.FindAllString(chunks[i-1], -1)
		cur := numbers.FindAllString(chunks[i], -1)
		require.NotEmpty(t, prev)
		require.NotEmpty(t, cur)
		assert.Equal(t, prev[len(prev)-1], cur[0],
			"chunk %d should start with the tail of chunk %d", i, i-1)
	}
}

func TestChunkerOversizedSentence(t *testing.T) {
	long := "word " + strings.Repeat("again ", 30) + "done."
	c := NewChunkerWithCounter(10, 0, WordsTokenCounter{})
	chunks := c.Split("Short one. " + long + " Short two.")
	require.NotEmpty(t, chunks)
	joined := strings.Join(chunks, " ")
	assert.Contains(t, joined, "Short one.")
	assert.Contains(t, joined, "Short two.")
	assert.Contains(t, joined, "done.")
}
