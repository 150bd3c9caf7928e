package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_ShortMessagesAreGeneric(t *testing.T) {
	// 不超过 2 个词的消息一律视为寒暄
	cases := []string{
		"hola",
		"hi",
		"buenos días",
		"precio total",
		"ok",
		"  gracias  ",
	}
	for _, msg := range cases {
		assert.Equal(t, Generic, Classify(msg), "消息: %q", msg)
	}
}

func TestClassify_LexiconWithThreeWords(t *testing.T) {
	// 3 个词以内且命中词表
	assert.Equal(t, Generic, Classify("hola buenos días"))
	assert.Equal(t, Generic, Classify("hey necesito ayuda"))
	assert.Equal(t, Generic, Classify("Quién eres tú"))
}

func TestClassify_ThreeWordsWithoutLexicon(t *testing.T) {
	// 3 个词但未命中词表，按实质性提问处理
	assert.Equal(t, Substantive, Classify("resumen del documento"))
}

func TestClassify_SubstantiveQuestions(t *testing.T) {
	cases := []string{
		"What is in the attached specification document?",
		"¿Qué dice el documento de onboarding sobre la política de acceso?",
		"dame el detalle de la política de vacaciones",
	}
	for _, msg := range cases {
		assert.Equal(t, Substantive, Classify(msg), "消息: %q", msg)
	}
}

func TestClassify_CaseAndWhitespaceInsensitive(t *testing.T) {
	assert.Equal(t, Generic, Classify("  HOLA  "))
	assert.Equal(t, Generic, Classify("HELLO THERE friend"))
}
