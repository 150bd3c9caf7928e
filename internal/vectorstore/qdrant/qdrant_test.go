package qdrant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSearch_MissingCollectionReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":{"error":"Collection docs doesn't exist"}}`))
	}))
	defer srv.Close()

	store := NewStore(srv.URL, "", "docs", zap.NewNop())

	hits, err := store.Search(context.Background(), []float64{0.1, 0.2}, 5)

	assert.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearch_DecodesHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":[{"id":"p1","score":0.91,"payload":{"chunk_id":"c1","document_id":"d1","content":"hola","chunk_index":2,"author":"ana"}}]}`))
	}))
	defer srv.Close()

	store := NewStore(srv.URL, "", "docs", zap.NewNop())

	hits, err := store.Search(context.Background(), []float64{0.1, 0.2}, 5)

	assert.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].ID)
	assert.Equal(t, "d1", hits[0].DocumentID)
	assert.Equal(t, "hola", hits[0].Content)
	assert.Equal(t, 2, hits[0].ChunkIndex)
	assert.Equal(t, 0.91, hits[0].Score)
	assert.Equal(t, "ana", hits[0].Metadata["author"])
}

func TestSearch_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := NewStore(srv.URL, "", "docs", zap.NewNop())

	_, err := store.Search(context.Background(), []float64{0.1}, 5)

	assert.Error(t, err)
}
