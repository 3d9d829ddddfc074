package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghclient "github.com/erkineren/repository-relay/internal/github"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *ghclient.Client {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := ghclient.NewClientWithHTTPClient(server.Client(), server.URL+"/", 5*time.Second)
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	require.NotNil(t, ghclient.NewClient("", time.Second))
	require.NotNil(t, ghclient.NewClient("test-token", time.Second))
}

func TestLatestCommit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/cat/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		assert.Equal(t, "repository-relay", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"sha":"def","html_url":"https://github.com/octo/cat/commit/def"}]`))
	})

	commit, err := newTestClient(t, mux).LatestCommit(context.Background(), "octo/cat")
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, "def", commit.SHA)
	assert.Equal(t, "https://github.com/octo/cat/commit/def", commit.HTMLURL)
}

func TestLatestTag_Empty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/cat/tags", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[]`))
	})

	tag, err := newTestClient(t, mux).LatestTag(context.Background(), "octo/cat")
	require.NoError(t, err)
	assert.Nil(t, tag)
}

func TestLatestTag(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/cat/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"v1.2.0","commit":{"sha":"abc"}}]`))
	})

	tag, err := newTestClient(t, mux).LatestTag(context.Background(), "octo/cat")
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, "v1.2.0", tag.Name)
}

func TestLatestRelease(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/cat/releases", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[{"id":42,"name":"","tag_name":"v1","html_url":"https://x/42"}]`))
	})

	rel, err := newTestClient(t, mux).LatestRelease(context.Background(), "octo/cat")
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, int64(42), rel.ID)
	assert.Equal(t, "v1", rel.DisplayName())
	assert.Equal(t, "https://x/42", rel.HTMLURL)
}

func TestLatestRelease_APIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/cat/releases", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := newTestClient(t, mux).LatestRelease(context.Background(), "octo/cat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestInvalidRepoName(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())

	_, err := client.LatestCommit(context.Background(), "not-a-repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected owner/repo")
}
