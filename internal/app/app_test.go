package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insta-iq-go/internal/config"
	"insta-iq-go/pkg/errs"
)

func localConfig() *config.Config {
	return &config.Config{
		Store:    config.StoreConfig{Backend: "astra"},
		Pipeline: config.PipelineConfig{ChunkSize: 50},
		Chat:     config.ChatConfig{Mode: "gateway", HistoryLimit: 20},
	}
}

func TestNewWithoutInfrastructure(t *testing.T) {
	a, err := New(context.Background(), localConfig(), Options{Consumer: true})
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Processor)
	assert.NotNil(t, a.Ingestion)
	assert.False(t, a.Ingestion.AsyncEnabled())
	assert.False(t, a.StartConsumer(context.Background()))

	tok, sid, err := a.JWT.IssueSession()
	require.NoError(t, err)
	got, err := a.JWT.VerifySession(tok)
	require.NoError(t, err)
	assert.Equal(t, sid, got)

	assert.Contains(t, a.String(), "store=astra")
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := localConfig()
	cfg.Store.Backend = "pinecone"
	_, err := New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestIngestValidatesConfigPerRequest(t *testing.T) {
	a, err := New(context.Background(), localConfig(), Options{})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Ingestion.Ingest(context.Background(), "nasa")
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
	assert.Contains(t, err.Error(), "ASTRA_DB_COLLECTION_NAME")
}
