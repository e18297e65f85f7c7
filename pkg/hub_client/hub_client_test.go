package hub_client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets/scitail/manifest.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("datasets: []\n"))
	})
	mux.HandleFunc("/datasets/scitail/scitail_bigbio_te/train.jsonl", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"premise":"a b","hypothesis":"c"}` + "\n\n" + `{"premise":"d","hypothesis":"e f"}` + "\n"))
	})
	mux.HandleFunc("/datasets/broken/broken_bigbio_te/train.jsonl", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json}\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHubClient_FetchSplit(t *testing.T) {
	srv := newTestHub(t)
	client := NewHubClient(srv.URL, "secret", 5*time.Second)

	records, err := client.FetchSplit(context.Background(), "scitail", "scitail_bigbio_te", "train")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a b", records[0]["premise"])
	assert.Equal(t, "e f", records[1]["hypothesis"])
}

func TestHubClient_FetchSplitUnauthorized(t *testing.T) {
	srv := newTestHub(t)
	client := NewHubClient(srv.URL, "", 5*time.Second)

	_, err := client.FetchSplit(context.Background(), "scitail", "scitail_bigbio_te", "train")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}

func TestHubClient_NotFound(t *testing.T) {
	srv := newTestHub(t)
	client := NewHubClient(srv.URL, "", 5*time.Second)

	_, err := client.FetchManifest(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHubClient_MalformedJSONL(t *testing.T) {
	srv := newTestHub(t)
	client := NewHubClient(srv.URL, "", 5*time.Second)

	_, err := client.FetchSplit(context.Background(), "broken", "broken_bigbio_te", "train")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "第1行")
}

func TestHubClient_FetchManifest(t *testing.T) {
	srv := newTestHub(t)
	client := NewHubClient(srv.URL, "", 5*time.Second)

	data, err := client.FetchManifest(context.Background(), "scitail")
	require.NoError(t, err)
	assert.Equal(t, "datasets: []\n", string(data))
}
