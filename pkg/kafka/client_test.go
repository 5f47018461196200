package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubIngestor struct {
	refs []string
	err  error
}

func (s *stubIngestor) Ingest(_ context.Context, ref string) (string, error) {
	s.refs = append(s.refs, ref)
	return "fp", s.err
}

func TestHandleMessage(t *testing.T) {
	ing := &stubIngestor{}
	assert.True(t, handleMessage(context.Background(), []byte(`{"documents":"https://x/a.pdf"}`), ing))
	assert.Equal(t, []string{"https://x/a.pdf"}, ing.refs)

	assert.False(t, handleMessage(context.Background(), []byte(`not json`), ing))
	assert.False(t, handleMessage(context.Background(), []byte(`{"documents":"  "}`), ing))
	assert.Len(t, ing.refs, 1)

	ing.err = errors.New("boom")
	assert.False(t, handleMessage(context.Background(), []byte(`{"documents":"https://x/b.pdf"}`), ing))
}

func TestConsumeStats(t *testing.T) {
	ing := &stubIngestor{}
	var stats consumeStats
	for _, value := range []string{`{"documents":"https://x/a.pdf"}`, `not json`, `{"documents":"https://x/b.pdf"}`} {
		stats.observe(handleMessage(context.Background(), []byte(value), ing))
	}
	ing.err = errors.New("boom")
	stats.observe(handleMessage(context.Background(), []byte(`{"documents":"https://x/c.pdf"}`), ing))

	assert.Equal(t, consumeStats{ingested: 2, failed: 2}, stats)
}

func TestBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(" a:9092, ,b:9092"))
	assert.Nil(t, brokers(""))
}
