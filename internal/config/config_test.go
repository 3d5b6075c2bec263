package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"insta-iq-go/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ASTRA_DB_API_ENDPOINT", "https://db.example.com")
	t.Setenv("ASTRA_DB_APPLICATION_TOKEN", "AstraCS:token")
	t.Setenv("ASTRA_DB_COLLECTION_NAME", "instagram_posts")
	t.Setenv("BASE_API_URL", "https://api.langflow.example.com")
	t.Setenv("LANGFLOW_ID", "flow-1")
	t.Setenv("ENDPOINT", "insta")
}

func TestLoadBindsOriginalEnvNames(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "https://db.example.com", cfg.Astra.APIEndpoint)
	assert.Equal(t, "AstraCS:token", cfg.Astra.Token)
	assert.Equal(t, "instagram_posts", cfg.Store.Collection)
	assert.Equal(t, "https://api.langflow.example.com", cfg.Langflow.BaseURL)
	assert.Equal(t, "flow-1", cfg.Langflow.FlowID)
	assert.Equal(t, "insta", cfg.Langflow.Endpoint)
	// 未单独配置网关 token 时回退到 Astra token
	assert.Equal(t, "AstraCS:token", cfg.Langflow.Token)

	require.NoError(t, cfg.ValidateIngestion())
	require.NoError(t, cfg.ValidateQuery())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 20*time.Second, cfg.Pipeline.InsertTimeout)
	assert.Equal(t, "astra", cfg.Store.Backend)
	assert.Equal(t, "default_keyspace", cfg.Astra.Keyspace)
	assert.Equal(t, "gateway", cfg.Chat.Mode)
	assert.Equal(t, time.Duration(0), cfg.Langflow.Timeout)
}

func TestLangflowTokenOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LANGFLOW_APPLICATION_TOKEN", "lf-token")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "lf-token", cfg.Langflow.Token)
}

func TestPrefixedEnv(t *testing.T) {
	t.Setenv("INSTAIQ_PIPELINE_CHUNK_SIZE", "10")
	t.Setenv("INSTAIQ_STORE_BACKEND", "qdrant")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Pipeline.ChunkSize)
	assert.Equal(t, "qdrant", cfg.Store.Backend)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "server:\n  port: \"9090\"\nstore:\n  backend: elasticsearch\n  collection: posts\nelasticsearch:\n  addresses: http://localhost:9200\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "elasticsearch", cfg.Store.Backend)
	assert.Equal(t, "http://localhost:9200", cfg.Elasticsearch.Addresses)

	err = cfg.ValidateIngestion()
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
	assert.Contains(t, err.Error(), "INSTAIQ_EMBEDDING_BASE_URL")
}

func TestMissingConfigFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestDotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LANGFLOW_ID=from-file\nENDPOINT=from-file\n"), 0o600))

	t.Setenv("LANGFLOW_ID", "from-env")
	// ENDPOINT 由 .env 写入；用 t.Setenv 登记以便测试结束后恢复
	t.Setenv("ENDPOINT", "")
	require.NoError(t, os.Unsetenv("ENDPOINT"))

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Langflow.FlowID)
	assert.Equal(t, "from-file", cfg.Langflow.Endpoint)
}

func TestValidateReportsMissingVariables(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Backend: "astra"}}

	err := cfg.ValidateIngestion()
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
	assert.Contains(t, err.Error(), "ASTRA_DB_COLLECTION_NAME")
	assert.Contains(t, err.Error(), "ASTRA_DB_API_ENDPOINT")
	assert.Contains(t, err.Error(), "ASTRA_DB_APPLICATION_TOKEN")

	err = cfg.ValidateQuery()
	require.Error(t, err)
	for _, name := range []string{"BASE_API_URL", "LANGFLOW_ID", "ENDPOINT", "LANGFLOW_APPLICATION_TOKEN"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Backend: "pinecone", Collection: "posts"}}
	err := cfg.ValidateIngestion()
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
}
