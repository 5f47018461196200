// Package es 提供了基于 Elasticsearch dense_vector 的向量存储。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"
	"hackrx-go/pkg/log"
	"hackrx-go/pkg/vectorstore"

	"github.com/elastic/go-elasticsearch/v8"
)

// Store 把分块写入 Elasticsearch，查询使用带 doc_id 过滤的 kNN 检索。
type Store struct {
	client       *elasticsearch.Client
	index        string
	dimension    int
	modelVersion string
}

// NewStore 初始化 Elasticsearch 客户端，并确保索引存在且向量维度与 dimension 一致。
func NewStore(esCfg config.ElasticsearchConfig, dimension int, modelVersion string) (*Store, error) {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{client: client, index: esCfg.IndexName, dimension: dimension, modelVersion: modelVersion}
	if err := s.createIndexIfNotExists(); err != nil {
		return nil, err
	}
	return s, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (s *Store) createIndexIfNotExists() error {
	res, err := s.client.Indices.Exists([]string{s.index})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", s.index)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", s.index, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithBody(strings.NewReader(indexMapping(s.dimension))),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", s.index, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", s.index, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功, 向量维度: %d", s.index, s.dimension)
	return nil
}

func indexMapping(dimension int) string {
	return fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id": { "type": "keyword" },
				"doc_id": { "type": "keyword" },
				"chunk_id": { "type": "integer" },
				"text_content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" }
			}
		}
	}`, dimension)
}

// Upsert 批量写入文档的全部分块（refresh=wait_for），随后删除序号超出新集合的旧分块。
// Elasticsearch 没有跨文档事务，新旧集合在这两步之间可能短暂并存。
func (s *Store) Upsert(ctx context.Context, documentID string, chunks []model.Chunk) error {
	if err := vectorstore.ValidateChunks(documentID, chunks, s.dimension); err != nil {
		return err
	}

	nextIndex := 0
	if len(chunks) > 0 {
		body, err := buildBulkBody(s.index, documentID, s.modelVersion, chunks)
		if err != nil {
			return err
		}
		res, err := s.client.Bulk(bytes.NewReader(body),
			s.client.Bulk.WithContext(ctx),
			s.client.Bulk.WithRefresh("wait_for"),
		)
		if err != nil {
			return fmt.Errorf("bulk index failed: %w", err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("bulk index returned an error: %s", res.String())
		}
		var bulkResp struct {
			Errors bool `json:"errors"`
		}
		if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
			return fmt.Errorf("failed to decode bulk response: %w", err)
		}
		if bulkResp.Errors {
			log.Errorf("[ESStore] 批量索引部分失败, doc_id: %s", documentID)
			return fmt.Errorf("bulk index reported item failures for %s", documentID)
		}
		for _, c := range chunks {
			if c.Index+1 > nextIndex {
				nextIndex = c.Index + 1
			}
		}
	}

	return s.deleteByQuery(ctx, staleChunksQuery(documentID, nextIndex))
}

// Query 在 documentID 范围内做 kNN 检索，并把 Elasticsearch 的 cosine 分数 (1+cos)/2 还原为 cos。
func (s *Store) Query(ctx context.Context, documentID string, vector []float32, topK int) ([]model.ScoredChunk, error) {
	if err := vectorstore.ValidateQuery(vector, topK, s.dimension); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchQuery(documentID, vector, topK)); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		log.Errorf("[ESStore] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[ESStore] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsChunk `json:"_source"`
				Score  *float64      `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.ScoredChunk, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		score := 0.0
		if hit.Score != nil && !isZeroVector(vector) {
			score = esScoreToCosine(*hit.Score)
		}
		results = append(results, model.ScoredChunk{
			Chunk: model.Chunk{
				DocumentID: hit.Source.DocID,
				Index:      hit.Source.ChunkID,
				Text:       hit.Source.TextContent,
				Vector:     hit.Source.Vector,
			},
			Score: score,
		})
	}
	vectorstore.SortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) Delete(ctx context.Context, documentID string) error {
	return s.deleteByQuery(ctx, staleChunksQuery(documentID, 0))
}

func (s *Store) deleteByQuery(ctx context.Context, query map[string]interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return fmt.Errorf("failed to encode delete query: %w", err)
	}
	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		&buf,
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
		s.client.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return fmt.Errorf("delete by query failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete by query returned an error: %s", res.String())
	}
	return nil
}

// buildBulkBody 生成 _bulk 请求的 NDJSON，文档 _id 为 docId_chunkIndex，重复写入即覆盖。
func buildBulkBody(index, documentID, modelVersion string, chunks []model.Chunk) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, c := range chunks {
		doc := model.EsChunk{
			VectorID:     fmt.Sprintf("%s_%d", documentID, c.Index),
			DocID:        documentID,
			ChunkID:      c.Index,
			TextContent:  c.Text,
			Vector:       c.Vector,
			ModelVersion: modelVersion,
		}
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": index, "_id": doc.VectorID},
		}
		if err := enc.Encode(meta); err != nil {
			return nil, err
		}
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// buildSearchQuery 构造 kNN 查询。cosine 相似度的 dense_vector 不接受零向量，
// 此时退化为按 chunk_id 顺序返回，所有分数视为 0。
func buildSearchQuery(documentID string, vector []float32, topK int) map[string]interface{} {
	filter := map[string]interface{}{"term": map[string]interface{}{"doc_id": documentID}}
	if isZeroVector(vector) {
		return map[string]interface{}{
			"query": filter,
			"sort":  []map[string]interface{}{{"chunk_id": "asc"}},
			"size":  topK,
		}
	}
	numCandidates := topK * 10
	if numCandidates < 100 {
		numCandidates = 100
	}
	if numCandidates > 10000 {
		numCandidates = 10000
	}
	return map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": numCandidates,
			"filter":         filter,
		},
		"size": topK,
	}
}

// staleChunksQuery 匹配 documentID 下序号 >= fromIndex 的分块，fromIndex 为 0 时匹配全部分块。
func staleChunksQuery(documentID string, fromIndex int) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"doc_id": documentID}},
					{"range": map[string]interface{}{"chunk_id": map[string]interface{}{"gte": fromIndex}}},
				},
			},
		},
	}
}

func esScoreToCosine(score float64) float64 {
	return 2*score - 1
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
