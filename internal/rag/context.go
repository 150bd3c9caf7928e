package rag

import (
	"fmt"
	"strings"

	"github.com/docassist/docassist-go/internal/model"
)

// 面向 LLM 的上下文模板，语言与被索引文档保持一致
const (
	groundedContextTemplate = `INFORMACIÓN RELEVANTE DE LOS DOCUMENTOS:

%s

INSTRUCCIONES:
- Responde la pregunta del usuario basándote ÚNICAMENTE en la información proporcionada arriba.
- Si la información no está en los documentos, di claramente que no tienes esa información en los documentos disponibles.
- Cita las fuentes cuando uses información específica de los documentos (ej: "Según el documento [nombre del documento]...").
- Sé preciso y conciso en tu respuesta.
- Si la pregunta requiere información que no está en los documentos, indica claramente que no tienes esa información.
`

	noContextTemplate = `IMPORTANTE: No se encontró información relevante en los documentos vectorizados del sistema para responder esta consulta.

INSTRUCCIONES:
- Debes indicar claramente al usuario que no tienes información sobre esto en los documentos disponibles.
- Puedes ofrecer información general si es apropiado, pero siempre aclara que no proviene de los documentos del sistema.
- Ejemplo de respuesta: "No tengo información sobre [tema] en los documentos disponibles en el sistema. Sin embargo, puedo proporcionarte información general..."
`

	unknownDocumentName = "Documento desconocido"
)

// ContextBlock 注入系统提示词的上下文块
type ContextBlock struct {
	Text       string
	HasContext bool
}

// BuildContext 把检索结果格式化为上下文块
// 没有命中时返回明确的"无资料"指令块，避免模型凭空编造来源
func BuildContext(chunks []model.RetrievedChunk) ContextBlock {
	if len(chunks) == 0 {
		return ContextBlock{Text: noContextTemplate, HasContext: false}
	}

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		name := chunk.Metadata["document_name"]
		if name == "" {
			name = unknownDocumentName
		}
		parts = append(parts, fmt.Sprintf("[Fuente %d - %s (Relevancia: %.2f%%)]:\n%s",
			i+1, name, chunk.Score*100, chunk.Content))
	}

	return ContextBlock{
		Text:       fmt.Sprintf(groundedContextTemplate, strings.Join(parts, "\n\n")),
		HasContext: true,
	}
}
