package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insta-iq-go/internal/config"
	"insta-iq-go/internal/model"
)

type astraServer struct {
	mu          sync.Mutex
	collections []string
	commands    []map[string]json.RawMessage
	paths       []string
	insertReply string
}

func (s *astraServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Header.Get("Token") != "AstraCS:test" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var cmd map[string]json.RawMessage
	_ = json.NewDecoder(r.Body).Decode(&cmd)
	s.commands = append(s.commands, cmd)
	s.paths = append(s.paths, r.URL.Path)

	switch {
	case cmd["findCollections"] != nil:
		out, _ := json.Marshal(map[string]interface{}{"status": map[string]interface{}{"collections": s.collections}})
		_, _ = w.Write(out)
	case cmd["createCollection"] != nil:
		var body struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(cmd["createCollection"], &body)
		s.collections = append(s.collections, body.Name)
		_, _ = w.Write([]byte(`{"status":{"ok":1}}`))
	case cmd["insertMany"] != nil:
		_, _ = w.Write([]byte(s.insertReply))
	default:
		_, _ = w.Write([]byte(`{"errors":[{"message":"unknown command"}]}`))
	}
}

func newAstraTestStore(t *testing.T, srv *astraServer, cfg config.AstraConfig) Database {
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	cfg.APIEndpoint = ts.URL
	cfg.Token = "AstraCS:test"
	db, err := NewAstraStore(cfg, ts.Client()).Connect(context.Background())
	require.NoError(t, err)
	return db
}

func TestAstraCreatesMissingCollection(t *testing.T) {
	srv := &astraServer{}
	db := newAstraTestStore(t, srv, config.AstraConfig{VectorizeProvider: "nvidia", VectorizeModel: "NV-Embed-QA"})
	assert.Equal(t, "default_keyspace", db.Name())

	coll, err := db.GetOrCreateCollection(context.Background(), "instagram_posts")
	require.NoError(t, err)
	assert.Equal(t, "instagram_posts", coll.Name())

	require.Len(t, srv.commands, 2)
	assert.Equal(t, "/api/json/v1/default_keyspace", srv.paths[1])
	var create struct {
		Name    string `json:"name"`
		Options struct {
			Vector struct {
				Metric  string            `json:"metric"`
				Service map[string]string `json:"service"`
			} `json:"vector"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal(srv.commands[1]["createCollection"], &create))
	assert.Equal(t, "cosine", create.Options.Vector.Metric)
	assert.Equal(t, map[string]string{"provider": "nvidia", "modelName": "NV-Embed-QA"}, create.Options.Vector.Service)
}

func TestAstraReusesExistingCollection(t *testing.T) {
	srv := &astraServer{collections: []string{"instagram_posts"}}
	db := newAstraTestStore(t, srv, config.AstraConfig{Keyspace: "social"})

	_, err := db.GetOrCreateCollection(context.Background(), "instagram_posts")
	require.NoError(t, err)
	_, err = db.GetOrCreateCollection(context.Background(), "instagram_posts")
	require.NoError(t, err)

	assert.Len(t, srv.commands, 2)
	for _, cmd := range srv.commands {
		assert.Contains(t, cmd, "findCollections")
	}
}

func TestAstraInsertMany(t *testing.T) {
	srv := &astraServer{collections: []string{"posts"}, insertReply: `{"status":{"insertedIds":["a","b"]}}`}
	db := newAstraTestStore(t, srv, config.AstraConfig{})
	coll, err := db.GetOrCreateCollection(context.Background(), "posts")
	require.NoError(t, err)

	docs := []model.VectorDocument{
		{PostID: 1, PostType: model.PostTypeReels, Vectorize: "first", Username: "nasa"},
		{PostID: 2, PostType: model.PostTypeStaticImage, Vectorize: "second", Username: "nasa"},
	}
	n, err := coll.InsertMany(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "/api/json/v1/default_keyspace/posts", srv.paths[1])
	var insert struct {
		Documents []map[string]interface{} `json:"documents"`
		Options   map[string]bool          `json:"options"`
	}
	require.NoError(t, json.Unmarshal(srv.commands[1]["insertMany"], &insert))
	assert.False(t, insert.Options["ordered"])
	require.Len(t, insert.Documents, 2)
	assert.Equal(t, "first", insert.Documents[0]["$vectorize"])
	assert.NotContains(t, insert.Documents[0], "vectorize")
}

func TestAstraInsertManyPartialFailure(t *testing.T) {
	srv := &astraServer{
		collections: []string{"posts"},
		insertReply: `{"status":{"insertedIds":["a"]},"errors":[{"message":"document too large"}]}`,
	}
	db := newAstraTestStore(t, srv, config.AstraConfig{})
	coll, err := db.GetOrCreateCollection(context.Background(), "posts")
	require.NoError(t, err)

	n, err := coll.InsertMany(context.Background(), []model.VectorDocument{{PostID: 1}, {PostID: 2}})
	assert.ErrorIs(t, err, ErrAstraCommand)
	assert.Equal(t, 1, n)
}

func TestAstraConnectValidation(t *testing.T) {
	_, err := NewAstraStore(config.AstraConfig{APIEndpoint: "https://db.example.com"}, nil).Connect(context.Background())
	assert.Error(t, err)
	_, err = NewAstraStore(config.AstraConfig{APIEndpoint: "not a url", Token: "t"}, nil).Connect(context.Background())
	assert.Error(t, err)
}

func TestAstraUnauthorized(t *testing.T) {
	ts := httptest.NewServer(&astraServer{})
	defer ts.Close()
	db, err := NewAstraStore(config.AstraConfig{APIEndpoint: ts.URL, Token: "wrong"}, nil).Connect(context.Background())
	require.NoError(t, err)
	_, err = db.GetOrCreateCollection(context.Background(), "posts")
	assert.Error(t, err)
}
