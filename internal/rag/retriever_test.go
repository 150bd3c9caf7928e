package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/docassist/docassist-go/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubSearcher struct {
	hits []vectorstore.SearchHit
	err  error
}

func (s *stubSearcher) Search(_ context.Context, _ []float64, _ int) ([]vectorstore.SearchHit, error) {
	return s.hits, s.err
}

func TestRetrieve_NormalizesDistanceToSimilarity(t *testing.T) {
	// 距离 0 对应相似度 1，距离 1 对应 0.5
	searcher := &stubSearcher{hits: []vectorstore.SearchHit{
		{ID: "a", Distance: 0, ByDistance: true, Content: "exacto"},
		{ID: "b", Distance: 1, ByDistance: true, Content: "lejano"},
	}}
	r := NewRetriever(searcher, 0.5, zap.NewNop())

	chunks := r.Retrieve(context.Background(), []float64{0.1}, 5)

	assert.Len(t, chunks, 2)
	assert.InDelta(t, 1.0, chunks[0].Score, 1e-9)
	assert.InDelta(t, 0.5, chunks[1].Score, 1e-9)
}

func TestRetrieve_ClampsNativeScores(t *testing.T) {
	searcher := &stubSearcher{hits: []vectorstore.SearchHit{
		{ID: "a", Score: 1.3, Content: "fuera de rango"},
		{ID: "b", Score: 0.8, Content: "en rango"},
	}}
	r := NewRetriever(searcher, 0.0, zap.NewNop())

	chunks := r.Retrieve(context.Background(), []float64{0.1}, 5)

	assert.Len(t, chunks, 2)
	assert.Equal(t, 1.0, chunks[0].Score)
	assert.Equal(t, 0.8, chunks[1].Score)
}

func TestRetrieve_FiltersBelowMinScore(t *testing.T) {
	// 距离 1.5 的相似度是 0.4，低于阈值被过滤
	searcher := &stubSearcher{hits: []vectorstore.SearchHit{
		{ID: "keep", Distance: 0.5, ByDistance: true},
		{ID: "drop", Distance: 1.5, ByDistance: true},
	}}
	r := NewRetriever(searcher, 0.5, zap.NewNop())

	chunks := r.Retrieve(context.Background(), []float64{0.1}, 5)

	assert.Len(t, chunks, 1)
	assert.Equal(t, "keep", chunks[0].ID)
}

func TestRetrieve_SearchFailureDegradesToEmpty(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("connection refused")}
	r := NewRetriever(searcher, 0.5, zap.NewNop())

	chunks := r.Retrieve(context.Background(), []float64{0.1}, 5)

	assert.NotNil(t, chunks)
	assert.Empty(t, chunks)
}

func TestRetrieve_CarriesChunkFields(t *testing.T) {
	searcher := &stubSearcher{hits: []vectorstore.SearchHit{
		{
			ID:         "doc-1:3",
			Distance:   0.2,
			ByDistance: true,
			Content:    "contenido del fragmento",
			DocumentID: "doc-1",
			ChunkIndex: 3,
			Metadata:   map[string]string{"document_name": "manual.pdf"},
		},
	}}
	r := NewRetriever(searcher, 0.5, zap.NewNop())

	chunks := r.Retrieve(context.Background(), []float64{0.1}, 5)

	assert.Len(t, chunks, 1)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, 3, chunks[0].ChunkIndex)
	assert.Equal(t, "manual.pdf", chunks[0].Metadata["document_name"])
}
