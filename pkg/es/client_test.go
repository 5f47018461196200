package es

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBulkBody(t *testing.T) {
	body, err := buildBulkBody("idx", "doc1", "local", []model.Chunk{
		{Index: 0, Text: "first", Vector: []float32{1, 0}},
		{Index: 1, Text: "second", Vector: []float32{0, 1}},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 4)

	var meta map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &meta))
	assert.Equal(t, "idx", meta["index"]["_index"])
	assert.Equal(t, "doc1_0", meta["index"]["_id"])

	var doc model.EsChunk
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &doc))
	assert.Equal(t, "doc1", doc.DocID)
	assert.Equal(t, 1, doc.ChunkID)
	assert.Equal(t, "second", doc.TextContent)
	assert.Equal(t, []float32{0, 1}, doc.Vector)
}

func TestBuildSearchQuery(t *testing.T) {
	q := buildSearchQuery("doc1", []float32{1, 2}, 5)
	knn := q["knn"].(map[string]interface{})
	assert.Equal(t, 5, knn["k"])
	assert.Equal(t, 100, knn["num_candidates"])
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"doc_id": "doc1"}}, knn["filter"])
	assert.Equal(t, 5, q["size"])

	zero := buildSearchQuery("doc1", []float32{0, 0}, 3)
	assert.NotContains(t, zero, "knn")
	assert.Contains(t, zero, "sort")
}

func TestEsScoreToCosine(t *testing.T) {
	assert.InDelta(t, 1.0, esScoreToCosine(1.0), 1e-12)
	assert.InDelta(t, 0.0, esScoreToCosine(0.5), 1e-12)
	assert.InDelta(t, -1.0, esScoreToCosine(0.0), 1e-12)
}

func TestIndexMappingUsesDimension(t *testing.T) {
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(indexMapping(384)), &m))
	vec := m["mappings"].(map[string]interface{})["properties"].(map[string]interface{})["vector"].(map[string]interface{})
	assert.Equal(t, float64(384), vec["dims"])
	assert.Equal(t, "cosine", vec["similarity"])
}

// fakeES 只实现 Store 用到的几个端点。
type fakeES struct {
	bulkLines   []string
	deleteQuery map[string]interface{}
	searchHits  string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		sc := bufio.NewScanner(r.Body)
		sc.Buffer(make([]byte, 1<<20), 1<<20)
		for sc.Scan() {
			f.bulkLines = append(f.bulkLines, sc.Text())
		}
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	case strings.HasSuffix(r.URL.Path, "/_delete_by_query"):
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &f.deleteQuery)
		_, _ = w.Write([]byte(`{"deleted":0}`))
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = w.Write([]byte(f.searchHits))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestStore(t *testing.T, f *fakeES) *Store {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	s, err := NewStore(config.ElasticsearchConfig{Addresses: srv.URL, IndexName: "hackrx_chunks"}, 2, "local")
	require.NoError(t, err)
	return s
}

func TestStore_UpsertDeletesStaleTail(t *testing.T) {
	f := &fakeES{}
	s := newTestStore(t, f)

	err := s.Upsert(context.Background(), "doc1", []model.Chunk{
		{Index: 0, Text: "a", Vector: []float32{1, 0}},
		{Index: 1, Text: "b", Vector: []float32{0, 1}},
		{Index: 2, Text: "c", Vector: []float32{1, 1}},
	})
	require.NoError(t, err)
	assert.Len(t, f.bulkLines, 6)

	raw, _ := json.Marshal(f.deleteQuery)
	assert.Contains(t, string(raw), `"gte":3`)
	assert.Contains(t, string(raw), `"doc_id":"doc1"`)
}

func TestStore_UpsertRejectsWrongDimension(t *testing.T) {
	f := &fakeES{}
	s := newTestStore(t, f)
	err := s.Upsert(context.Background(), "doc1", []model.Chunk{{Index: 0, Vector: []float32{1, 2, 3}}})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
	assert.Empty(t, f.bulkLines)
}

func TestStore_QueryConvertsScoresAndOrders(t *testing.T) {
	f := &fakeES{searchHits: `{"hits":{"hits":[
		{"_score":0.75,"_source":{"doc_id":"doc1","chunk_id":2,"text_content":"c"}},
		{"_score":1.0,"_source":{"doc_id":"doc1","chunk_id":1,"text_content":"b"}},
		{"_score":1.0,"_source":{"doc_id":"doc1","chunk_id":0,"text_content":"a"}}
	]}}`}
	s := newTestStore(t, f)

	res, err := s.Query(context.Background(), "doc1", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{res[0].Text, res[1].Text, res[2].Text})
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.InDelta(t, 0.5, res[2].Score, 1e-9)

	_, err = s.Query(context.Background(), "doc1", []float32{1, 0}, 0)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestStore_Delete(t *testing.T) {
	f := &fakeES{}
	s := newTestStore(t, f)
	require.NoError(t, s.Delete(context.Background(), "doc9"))

	raw, _ := json.Marshal(f.deleteQuery)
	assert.True(t, bytes.Contains(raw, []byte(`"doc_id":"doc9"`)))
	assert.Contains(t, string(raw), `"gte":0`)
}
