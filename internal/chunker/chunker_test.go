package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_EmptyText(t *testing.T) {
	c := New(1000, 200)
	assert.Empty(t, c.Chunk(""))
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c := New(1000, 200)
	chunks := c.Chunk("short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestChunk_TrimsWhitespace(t *testing.T) {
	c := New(1000, 200)
	chunks := c.Chunk("  hola mundo  \n")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hola mundo", chunks[0])
}

func TestChunk_OverlapRepeated(t *testing.T) {
	// 无句号无换行的连续字符，窗口不吸附，步长恒为 chunkSize-overlap，
	// 相邻分块之间应重复 overlap 个字符
	var sb strings.Builder
	alphabet := "abcdefghijklmnopqrstuvwxyz0123456789"
	for sb.Len() < 120 {
		sb.WriteString(alphabet)
	}
	text := sb.String()[:120]

	c := New(50, 10)
	chunks := c.Chunk(text)
	require.GreaterOrEqual(t, len(chunks), 2)

	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i][len(chunks[i])-10:]
		head := chunks[i+1][:10]
		assert.Equal(t, tail, head, "分块 %d 与 %d 之间缺少重叠", i, i+1)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet. ", 40)
	c := New(100, 20)
	first := c.Chunk(text)
	second := c.Chunk(text)
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, len(first), 2)
}

func TestChunk_SnapsToSentenceBoundary(t *testing.T) {
	// 第一句结束于窗口后半段，应在句号处截断而非硬切
	text := strings.Repeat("a", 70) + ". " + strings.Repeat("b", 200)
	c := New(100, 20)
	chunks := c.Chunk(text)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, strings.Repeat("a", 70)+".", chunks[0])
}

func TestChunk_NoSnapBeforeMidpoint(t *testing.T) {
	// 句号在窗口前半段时不吸附，保持整窗切分
	text := strings.Repeat("c", 20) + ". " + strings.Repeat("d", 300)
	c := New(100, 20)
	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)
	assert.Len(t, []rune(chunks[0]), 100)
}

func TestChunk_LastWindowKeptWhole(t *testing.T) {
	// 末尾窗口不吸附：即使包含句号也原样保留
	text := strings.Repeat("e", 80) + ". fin"
	c := New(100, 20)
	chunks := c.Chunk(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestNew_InvalidParamsFallBack(t *testing.T) {
	c := New(0, -5)
	assert.Equal(t, DefaultChunkSize, c.chunkSize)
	assert.Equal(t, DefaultChunkSize/5, c.overlap)
}
