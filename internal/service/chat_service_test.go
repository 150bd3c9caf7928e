package service

import (
	"context"
	"errors"
	"testing"

	"github.com/docassist/docassist-go/internal/model"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeLLM struct {
	result   *model.CompletionResult
	err      error
	messages []model.PromptMessage
	calls    int
}

func (f *fakeLLM) Complete(_ context.Context, messages []model.PromptMessage, _ float64) (*model.CompletionResult, error) {
	f.calls++
	f.messages = messages
	return f.result, f.err
}

type fakeEmbedder struct {
	vector []float64
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	f.calls++
	return f.vector, f.err
}

type fakeRetriever struct {
	chunks []model.RetrievedChunk
	calls  int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ []float64, _ int) []model.RetrievedChunk {
	f.calls++
	return f.chunks
}

type fakePublisher struct {
	events   []string
	payloads []map[string]interface{}
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, eventName string, payload map[string]interface{}) error {
	f.events = append(f.events, eventName)
	f.payloads = append(f.payloads, payload)
	return f.err
}

type fakeRecorder struct {
	evals []*model.Evaluation
	err   error
}

func (f *fakeRecorder) Create(_ context.Context, eval *model.Evaluation) error {
	f.evals = append(f.evals, eval)
	return f.err
}

func newTestChatService(llm *fakeLLM, emb *fakeEmbedder, ret *fakeRetriever, pub *fakePublisher, rec *fakeRecorder) *ChatService {
	var publisher EventPublisher
	var recorder EvaluationRecorder
	if pub != nil {
		publisher = pub
	}
	if rec != nil {
		recorder = rec
	}
	return NewChatService(llm, emb, ret, publisher, recorder, 5, 0.7, zap.NewNop())
}

func TestSendMessage_RAGFlowWithSources(t *testing.T) {
	llm := &fakeLLM{result: &model.CompletionResult{
		Content: "Según el documento politicas.pdf, son 22 días.",
		Tokens:  model.TokenUsage{Input: 100, Output: 20, Total: 120},
	}}
	emb := &fakeEmbedder{vector: []float64{0.1, 0.2}}
	ret := &fakeRetriever{chunks: []model.RetrievedChunk{
		{DocumentID: "d1", Score: 0.9, Content: "22 días de vacaciones",
			Metadata: map[string]string{"document_name": "politicas.pdf"}},
	}}
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	svc := newTestChatService(llm, emb, ret, pub, rec)

	resp, err := svc.SendMessage(context.Background(), &model.ChatRequest{
		UserMessage: "¿Cuántos días de vacaciones tengo?",
		UserID:      "u1",
		UseRAG:      true,
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 1, ret.calls)
	assert.Equal(t, 1, llm.calls)
	assert.Len(t, llm.messages, 2)
	assert.Contains(t, llm.messages[0].Content, "INFORMACIÓN RELEVANTE DE LOS DOCUMENTOS")
	assert.Len(t, resp.Sources, 1)
	assert.Equal(t, "politicas.pdf", resp.Sources[0].DocumentName)
	assert.Equal(t, 120, resp.Tokens.Total)
}

func TestSendMessage_GenericMessageSkipsRetrieval(t *testing.T) {
	llm := &fakeLLM{result: &model.CompletionResult{Content: "¡Hola!"}}
	emb := &fakeEmbedder{}
	ret := &fakeRetriever{}
	svc := newTestChatService(llm, emb, ret, nil, nil)

	resp, err := svc.SendMessage(context.Background(), &model.ChatRequest{
		UserMessage: "hola",
		UseRAG:      true,
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, emb.calls)
	assert.Equal(t, 0, ret.calls)
	// 没有上下文时仍要告知模型没有资料
	assert.Contains(t, llm.messages[0].Content, "IMPORTANTE: No se encontró información relevante")
	assert.Empty(t, resp.Sources)
}

func TestSendMessage_RAGDisabledUsesBasePromptOnly(t *testing.T) {
	llm := &fakeLLM{result: &model.CompletionResult{Content: "respuesta"}}
	emb := &fakeEmbedder{}
	ret := &fakeRetriever{}
	svc := newTestChatService(llm, emb, ret, nil, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatRequest{
		UserMessage:  "¿Qué dice la política de acceso?",
		SystemPrompt: "Eres un asistente corporativo.",
		UseRAG:       false,
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, emb.calls)
	assert.Equal(t, 0, ret.calls)
	assert.Equal(t, "Eres un asistente corporativo.", llm.messages[0].Content)
}

func TestSendMessage_EmptyMessageRejected(t *testing.T) {
	svc := newTestChatService(&fakeLLM{}, &fakeEmbedder{}, &fakeRetriever{}, nil, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatRequest{UserMessage: "   "})

	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendMessage_EmbeddingFailureIsFatal(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("api caído")}
	llm := &fakeLLM{result: &model.CompletionResult{Content: "respuesta"}}
	svc := newTestChatService(llm, emb, &fakeRetriever{}, nil, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatRequest{
		UserMessage: "¿Qué dice el manual de seguridad?",
		UseRAG:      true,
	})

	assert.Error(t, err)
	assert.Equal(t, 0, llm.calls)
}

func TestSendMessage_SideEffectFailuresDontBreakResponse(t *testing.T) {
	llm := &fakeLLM{result: &model.CompletionResult{Content: "respuesta"}}
	pub := &fakePublisher{err: errors.New("kafka caído")}
	rec := &fakeRecorder{err: errors.New("mongo caído")}
	svc := newTestChatService(llm, &fakeEmbedder{}, &fakeRetriever{}, pub, rec)

	resp, err := svc.SendMessage(context.Background(), &model.ChatRequest{
		UserMessage: "hola",
	})

	assert.NoError(t, err)
	assert.Equal(t, "respuesta", resp.Message)
	assert.Len(t, pub.events, 1)
	assert.Len(t, rec.evals, 1)
}

func TestSendMessage_PublishesAuditAndEvaluation(t *testing.T) {
	llm := &fakeLLM{result: &model.CompletionResult{
		Content: "respuesta",
		Tokens:  model.TokenUsage{Input: 5, Output: 3, Total: 8},
	}}
	pub := &fakePublisher{}
	rec := &fakeRecorder{}
	svc := newTestChatService(llm, &fakeEmbedder{}, &fakeRetriever{}, pub, rec)

	resp, err := svc.SendMessage(context.Background(), &model.ChatRequest{
		UserMessage:      "hola",
		ConversationID:   "conv-9",
		PromptTemplateID: "prompt-7",
	})

	assert.NoError(t, err)
	assert.Equal(t, []string{"chat.message.processed"}, pub.events)
	assert.Equal(t, "prompt-7", pub.payloads[0]["promptId"])
	assert.Len(t, rec.evals, 1)
	assert.Equal(t, "conv-9", rec.evals[0].ConversationID)
	assert.Equal(t, "prompt-7", rec.evals[0].PromptTemplateID)
	assert.Equal(t, 8, rec.evals[0].Metrics.Tokens.Total)
	assert.Equal(t, int(resp.LatencyMs), rec.evals[0].Metrics.LatencyMs)
}

func TestSendMessage_NoPromptIDOmitsKey(t *testing.T) {
	llm := &fakeLLM{result: &model.CompletionResult{Content: "respuesta"}}
	pub := &fakePublisher{}
	svc := newTestChatService(llm, &fakeEmbedder{}, &fakeRetriever{}, pub, nil)

	_, err := svc.SendMessage(context.Background(), &model.ChatRequest{UserMessage: "hola"})

	assert.NoError(t, err)
	_, ok := pub.payloads[0]["promptId"]
	assert.False(t, ok)
}
