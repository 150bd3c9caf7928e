package triage

import "strings"

// Classification 查询分类结果
type Classification int

const (
	// Generic 寒暄类消息，跳过向量检索
	Generic Classification = iota
	// Substantive 实质性提问，需要检索文档
	Substantive
)

// genericLexicon 寒暄/闲聊词表（含西语变体，带与不带重音符均收录）
var genericLexicon = []string{
	"hola", "hi", "hello", "hey", "buenos días", "buenas tardes", "buenas noches",
	"como estas", "como estás", "qué tal", "que tal", "cómo te llamas", "como te llamas",
	"quien eres", "quién eres", "que eres", "qué eres", "ayuda", "help",
}

// Classify 判断消息是否为寒暄类查询
// 向量化和检索开销较大，对寒暄消息直接跳过可以显著降低延迟和成本。
// 规则：不超过 3 个词且命中词表，或不超过 2 个词（极短消息视为问候）。
func Classify(message string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(message))
	words := strings.Fields(normalized)

	if len(words) <= 3 {
		for _, phrase := range genericLexicon {
			if strings.Contains(normalized, phrase) {
				return Generic
			}
		}
	}

	if len(words) <= 2 {
		return Generic
	}

	return Substantive
}
