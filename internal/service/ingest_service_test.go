package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docassist/docassist-go/internal/chunker"
	"github.com/docassist/docassist-go/internal/model"
	"github.com/docassist/docassist-go/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDocStore struct {
	docs     map[string]*model.Document
	statuses []model.DocumentStatus
	saveErr  error
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[string]*model.Document{}}
}

func (f *fakeDocStore) Save(_ context.Context, doc *model.Document) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocStore) UpdateStatus(_ context.Context, id string, status model.DocumentStatus, chunks int, errorMessage string) error {
	doc, ok := f.docs[id]
	if !ok {
		return errors.New("文档不存在")
	}
	doc.Status = status
	doc.Chunks = chunks
	doc.ErrorMessage = errorMessage
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeDocStore) GetByID(_ context.Context, id string) (*model.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	return doc, nil
}

func (f *fakeDocStore) ListByUser(_ context.Context, userID string) ([]*model.Document, error) {
	var out []*model.Document
	for _, doc := range f.docs {
		if doc.UserID == userID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeDocStore) Delete(_ context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Supports(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func (f *fakeExtractor) ExtractText(_ string) (string, error) {
	return f.text, f.err
}

type fakeBatchEmbedder struct {
	err   error
	calls int
	dim   int
}

func (f *fakeBatchEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = make([]float64, f.dim)
	}
	return out, nil
}

type fakeIndex struct {
	upserts    [][]model.DocumentChunk
	upsertErr  error
	deletedIDs []string
}

func (f *fakeIndex) Search(_ context.Context, _ []float64, _ int) ([]vectorstore.SearchHit, error) {
	return nil, nil
}

func (f *fakeIndex) Upsert(_ context.Context, _ string, chunks []model.DocumentChunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, chunks)
	return nil
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, _ string, documentID string) error {
	f.deletedIDs = append(f.deletedIDs, documentID)
	return nil
}

func (f *fakeIndex) EnsureCollection(_ context.Context, _ string, _ int) error {
	return nil
}

func newTestIngestService(store *fakeDocStore, ext *fakeExtractor, emb *fakeBatchEmbedder, index *fakeIndex, pub *fakePublisher) *IngestService {
	var publisher EventPublisher
	if pub != nil {
		publisher = pub
	}
	return NewIngestService(store, ext, chunker.New(100, 20), emb, index, publisher, "documents", zap.NewNop())
}

func TestUpload_RegistersPendingAndPublishes(t *testing.T) {
	store := newFakeDocStore()
	pub := &fakePublisher{}
	svc := newTestIngestService(store, &fakeExtractor{}, &fakeBatchEmbedder{dim: 3}, &fakeIndex{}, pub)

	doc, err := svc.Upload(context.Background(), "u1", "manual.pdf", "manual interno", "/tmp/x.pdf", 2048)

	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusPending, doc.Status)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, []string{"document.uploaded"}, pub.events)
	saved, _ := store.GetByID(context.Background(), doc.ID)
	assert.NotNil(t, saved)
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	svc := newTestIngestService(newFakeDocStore(), &fakeExtractor{}, &fakeBatchEmbedder{dim: 3}, &fakeIndex{}, nil)

	_, err := svc.Upload(context.Background(), "u1", "notas.txt", "", "/tmp/notas.txt", 10)

	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestUpload_PublishFailureSurfaces(t *testing.T) {
	pub := &fakePublisher{err: errors.New("kafka caído")}
	svc := newTestIngestService(newFakeDocStore(), &fakeExtractor{}, &fakeBatchEmbedder{dim: 3}, &fakeIndex{}, pub)

	_, err := svc.Upload(context.Background(), "u1", "manual.pdf", "", "/tmp/x.pdf", 10)

	assert.Error(t, err)
}

func TestProcess_HappyPath(t *testing.T) {
	store := newFakeDocStore()
	store.docs["doc-1"] = &model.Document{ID: "doc-1", Name: "manual.pdf", UserID: "u1", Status: model.DocumentStatusPending}
	ext := &fakeExtractor{text: strings.Repeat("El manual describe el proceso de acceso. ", 20)}
	emb := &fakeBatchEmbedder{dim: 3}
	index := &fakeIndex{}
	pub := &fakePublisher{}
	svc := newTestIngestService(store, ext, emb, index, pub)

	err := svc.Process(context.Background(), "doc-1")

	require.NoError(t, err)
	// 状态流转 processing -> completed
	assert.Equal(t, []model.DocumentStatus{model.DocumentStatusProcessing, model.DocumentStatusCompleted}, store.statuses)
	// 向量化和写入各只有一次批量调用
	assert.Equal(t, 1, emb.calls)
	require.Len(t, index.upserts, 1)
	assert.NotEmpty(t, index.upserts[0])
	assert.Equal(t, "manual.pdf", index.upserts[0][0].Metadata["document_name"])
	assert.Equal(t, "doc-1", index.upserts[0][0].DocumentID)
	assert.Equal(t, store.docs["doc-1"].Chunks, len(index.upserts[0]))
	assert.Equal(t, []string{"document.processed"}, pub.events)
}

func TestProcess_UnknownDocument(t *testing.T) {
	svc := newTestIngestService(newFakeDocStore(), &fakeExtractor{}, &fakeBatchEmbedder{dim: 3}, &fakeIndex{}, nil)

	err := svc.Process(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestProcess_ExtractionFailureMarksFailed(t *testing.T) {
	store := newFakeDocStore()
	store.docs["doc-1"] = &model.Document{ID: "doc-1", Name: "roto.pdf", Status: model.DocumentStatusPending}
	ext := &fakeExtractor{err: errors.New("pdf corrupto")}
	pub := &fakePublisher{}
	svc := newTestIngestService(store, ext, &fakeBatchEmbedder{dim: 3}, &fakeIndex{}, pub)

	err := svc.Process(context.Background(), "doc-1")

	assert.Error(t, err)
	assert.Equal(t, model.DocumentStatusFailed, store.docs["doc-1"].Status)
	assert.NotEmpty(t, store.docs["doc-1"].ErrorMessage)
	assert.Equal(t, []string{"document.processing.failed"}, pub.events)
}

func TestProcess_EmbeddingFailureMarksFailed(t *testing.T) {
	store := newFakeDocStore()
	store.docs["doc-1"] = &model.Document{ID: "doc-1", Name: "manual.pdf", Status: model.DocumentStatusPending}
	ext := &fakeExtractor{text: "Texto suficiente para al menos un fragmento."}
	emb := &fakeBatchEmbedder{err: errors.New("api caído")}
	index := &fakeIndex{}
	svc := newTestIngestService(store, ext, emb, index, nil)

	err := svc.Process(context.Background(), "doc-1")

	assert.Error(t, err)
	assert.Equal(t, model.DocumentStatusFailed, store.docs["doc-1"].Status)
	assert.Empty(t, index.upserts)
}

func TestProcess_UpsertFailureMarksFailed(t *testing.T) {
	store := newFakeDocStore()
	store.docs["doc-1"] = &model.Document{ID: "doc-1", Name: "manual.pdf", Status: model.DocumentStatusPending}
	ext := &fakeExtractor{text: "Texto suficiente para al menos un fragmento."}
	index := &fakeIndex{upsertErr: errors.New("vector db caído")}
	svc := newTestIngestService(store, ext, &fakeBatchEmbedder{dim: 3}, index, nil)

	err := svc.Process(context.Background(), "doc-1")

	assert.Error(t, err)
	assert.Equal(t, model.DocumentStatusFailed, store.docs["doc-1"].Status)
}

func TestDelete_RemovesVectorsAndMetadata(t *testing.T) {
	store := newFakeDocStore()
	store.docs["doc-1"] = &model.Document{ID: "doc-1", Name: "manual.pdf", UserID: "u1"}
	index := &fakeIndex{}
	svc := newTestIngestService(store, &fakeExtractor{}, &fakeBatchEmbedder{dim: 3}, index, nil)

	err := svc.Delete(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1"}, index.deletedIDs)
	doc, _ := store.GetByID(context.Background(), "doc-1")
	assert.Nil(t, doc)
}

func TestDelete_UnknownDocument(t *testing.T) {
	svc := newTestIngestService(newFakeDocStore(), &fakeExtractor{}, &fakeBatchEmbedder{dim: 3}, &fakeIndex{}, nil)

	err := svc.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
