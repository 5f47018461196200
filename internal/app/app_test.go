package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hackrx-go/internal/config"
	"hackrx-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HACKRX_AUTH_TOKEN", "secret")
	t.Setenv("HACKRX_EXTRACTOR_TYPE", "plain")
	t.Setenv("HACKRX_RAG_CHUNK_SIZE", "20")
	t.Setenv("HACKRX_RAG_CHUNK_OVERLAP", "5")
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNew_LocalPipeline(t *testing.T) {
	cfg := localConfig(t)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Processor)
	assert.NotNil(t, a.QA)
	assert.NotNil(t, a.Documents)
	assert.True(t, a.Verifier.Verify("secret"))
	assert.False(t, a.Verifier.Verify("other"))
}

func TestNew_UnknownStore(t *testing.T) {
	cfg := localConfig(t)
	cfg.VectorStore.Type = "faiss"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector_store.type")
}

func TestModelVersion(t *testing.T) {
	assert.Equal(t, "local:384", ModelVersion(config.EmbeddingConfig{Provider: "local", Dimensions: 384}))
	assert.Equal(t, "openai:text-embedding-3-small:256",
		ModelVersion(config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", Dimensions: 256}))
}

func TestNew_LocalFilesOnlyWhenEnabled(t *testing.T) {
	cfg := localConfig(t)
	doc := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(doc, []byte("The grace period for premium payment is thirty days."), 0o600))
	req := model.RunRequest{Documents: doc, Questions: []string{"What is the grace period?"}}

	server, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer server.Close()
	_, err = server.QA.Run(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInvalidDocumentRef)

	cli, err := New(context.Background(), cfg, WithLocalFiles())
	require.NoError(t, err)
	defer cli.Close()
	answers, err := cli.QA.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"The grace period for premium payment is thirty days."}, answers)
}

const gracePolicy = `National Parivar Mediclaim Plus Policy

GRACE PERIOD: A grace period of thirty days is provided for premium payment after the due date to renew or continue the policy without losing continuity benefits.

WAITING PERIOD: There is a waiting period of thirty-six (36) months of continuous coverage for pre-existing diseases.

MATERNITY: The policy covers maternity expenses, including childbirth and lawful medical termination of pregnancy.`

func TestDefaultConfig_AnswersGracePeriodVerbatim(t *testing.T) {
	t.Setenv("HACKRX_AUTH_TOKEN", "secret")
	t.Setenv("HACKRX_EXTRACTOR_TYPE", "plain")
	cfg, err := config.Load("")
	require.NoError(t, err)

	doc := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(doc, []byte(gracePolicy), 0o600))

	a, err := New(context.Background(), cfg, WithLocalFiles())
	require.NoError(t, err)
	defer a.Close()

	answers, err := a.QA.Run(context.Background(), model.RunRequest{
		Documents: doc,
		Questions: []string{
			"What is the grace period for premium payment?",
			"Are dental implants reimbursed?",
		},
	})
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "GRACE PERIOD: A grace period of thirty days is provided for premium payment after the due date to renew or continue the policy without losing continuity benefits.", answers[0])
	assert.Equal(t, model.NotFoundAnswer, answers[1])
}
