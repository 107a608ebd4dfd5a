package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_Defaults(t *testing.T) {
	c := NewChunker(0, 0)
	assert.Equal(t, 1000, c.Size)
	assert.Equal(t, 200, c.Overlap)

	c = NewChunker(100, 0)
	assert.Equal(t, 100, c.Size)
	assert.Equal(t, 20, c.Overlap, "overlap default shrinks with a small size")

	c = NewChunker(500, 50)
	assert.Equal(t, 500, c.Size)
	assert.Equal(t, 50, c.Overlap)
}

func TestSplit_Empty(t *testing.T) {
	c := NewChunker(100, 10)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\n  "))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(100, 10)
	chunks := c.Split("a short paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0])
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	para1 := strings.Repeat("a", 60)
	para2 := strings.Repeat("b", 60)
	c := NewChunker(100, 10)

	chunks := c.Split(para1 + "\n\n" + para2)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0], para1)
	assert.Contains(t, chunks[1], para2)
}

func TestSplit_RespectsSizeBound(t *testing.T) {
	var words []string
	for i := 0; i < 200; i++ {
		words = append(words, "word")
	}
	c := NewChunker(80, 16)

	chunks := c.Split(strings.Join(words, " "))
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 80, "chunk %d exceeds size bound", i)
	}
}

func TestSplit_CarriesOverlap(t *testing.T) {
	para1 := strings.Repeat("a", 60)
	para2 := strings.Repeat("b", 60)
	c := NewChunker(100, 10)

	chunks := c.Split(para1 + "\n\n" + para2)
	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1], strings.Repeat("a", 10)),
		"second chunk must start with the previous chunk's tail")
}

func TestSplit_WindowFallback(t *testing.T) {
	// No separator at all forces fixed windows.
	text := strings.Repeat("x", 250)
	c := NewChunker(100, 20)

	chunks := c.Split(text)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Equal(t, 250-2*80, len(chunks[2]))

	// Consecutive windows share the overlap region.
	assert.Equal(t, chunks[0][80:], chunks[1][:20])
}

func TestSplit_MultibyteWindowStaysOnRuneBoundaries(t *testing.T) {
	// Unbroken CJK text forces the window fallback; windows must count
	// runes, not bytes.
	text := strings.Repeat("語", 200)
	c := NewChunker(100, 20)

	chunks := c.Split(text)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d contains invalid UTF-8", i)
	}
	assert.Len(t, []rune(chunks[0]), 100)
	assert.Equal(t, strings.Repeat("語", 200), strings.Repeat("語", 80*2)+chunks[2])
}

func TestSplit_MultibyteOverlapStaysOnRuneBoundaries(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("héllo wörld ", 30))
	c := NewChunker(50, 10)

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d contains invalid UTF-8", i)
	}
}

func TestSplit_CoversAllContent(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("paragraph ")
		sb.WriteString(strings.Repeat("data ", 10))
		sb.WriteString("\n\n")
	}
	c := NewChunker(200, 40)

	chunks := c.Split(sb.String())
	require.NotEmpty(t, chunks)
	joined := strings.Join(chunks, " ")
	assert.Contains(t, joined, "paragraph")
	for _, chunk := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(chunk))
	}
}
