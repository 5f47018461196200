package tika

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-1.4 fake", string(body))
		_, _ = w.Write([]byte("GRACE PERIOD\n\nthirty days"))
	}))
	defer srv.Close()

	c := NewClient(config.TikaConfig{ServerURL: srv.URL, Timeout: time.Second})
	text, err := c.Extract(context.Background(), []byte("%PDF-1.4 fake"), "policy.pdf")
	require.NoError(t, err)
	assert.Equal(t, "GRACE PERIOD\n\nthirty days", text)
}

func TestExtract_UnprocessableDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("encrypted document"))
	}))
	defer srv.Close()

	c := NewClient(config.TikaConfig{ServerURL: srv.URL, Timeout: time.Second})
	_, err := c.Extract(context.Background(), []byte("garbage"), "policy.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExtraction)
	assert.Contains(t, err.Error(), "422")
}

func TestExtract_ServerUnavailable(t *testing.T) {
	c := NewClient(config.TikaConfig{ServerURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.Extract(context.Background(), []byte("x"), "a.pdf")
	assert.ErrorIs(t, err, model.ErrExtraction)
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", detectMimeType("a.pdf"))
	assert.Equal(t, "application/octet-stream", detectMimeType("noext"))
	assert.Equal(t, "application/octet-stream", detectMimeType("a.unknownext"))
}
