package chunker

import "strings"

const (
	// DefaultChunkSize 默认窗口大小（字符数）
	DefaultChunkSize = 1000
	// DefaultOverlap 默认重叠长度（字符数）
	DefaultOverlap = 200
)

// TextChunker 滑动窗口分块器
// 以 chunkSize 为窗口宽度、chunkSize-overlap 为步长切分文本，
// 相邻分块之间保留 overlap 个字符的重叠以维持上下文连续。
type TextChunker struct {
	chunkSize int
	overlap   int
}

// New 创建分块器，参数非法时回退到默认值
func New(chunkSize, overlap int) *TextChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	// 重叠不能达到窗口的一半，否则边界吸附后步长可能不再前进
	if overlap < 0 || overlap >= chunkSize/2 {
		overlap = chunkSize / 5
	}
	return &TextChunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk 切分文本
// 对未到达文本末尾的窗口尝试边界吸附：取窗口内最后一个句号和最后一个
// 换行中靠后的位置，若该位置超过窗口的一半则在此截断，避免句子被拦腰切开，
// 同时保证分块不会缩水到窗口的一半以下。
// 每个分块去除首尾空白，去空后为空的分块丢弃。
func (c *TextChunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}
	}

	chunks := make([]string, 0, len(runes)/c.chunkSize+1)
	start := 0

	for start < len(runes) {
		end := start + c.chunkSize
		sliceEnd := end
		if sliceEnd > len(runes) {
			sliceEnd = len(runes)
		}
		window := runes[start:sliceEnd]

		// 边界吸附仅对中间窗口生效，末尾窗口原样保留
		if end < len(runes) {
			if cut := lastBoundary(window); float64(cut) > float64(c.chunkSize)*0.5 {
				window = window[:cut+1]
				end = start + cut + 1
			}
		}

		if trimmed := strings.TrimSpace(string(window)); trimmed != "" {
			chunks = append(chunks, trimmed)
		}

		// 窗口已覆盖到文本末尾，结束；否则回退 overlap 后继续
		if sliceEnd == len(runes) {
			break
		}
		start = end - c.overlap
	}

	return chunks
}

// lastBoundary 返回窗口内最后一个句号或换行的下标，不存在时返回 -1
func lastBoundary(window []rune) int {
	cut := -1
	for i, r := range window {
		if r == '.' || r == '\n' {
			cut = i
		}
	}
	return cut
}
