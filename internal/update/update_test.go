package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewer(t *testing.T) {
	require.True(t, Newer("1.0.1", "1.0.0"))
	require.True(t, Newer("v2.0", "1.9.9"))
	require.False(t, Newer("1.0.0", "1.0.0"))
	require.False(t, Newer("0.9.0", "1.0.0"))
	require.True(t, Newer("nightly", "1.0.0"))
	require.False(t, Newer("nightly", " nightly"))
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/version.txt", r.URL.Path)
		w.Write([]byte("1.2.0\n"))
	}))
	defer srv.Close()

	u := New(srv.URL+"/version.txt", srv.URL)
	rel, err := u.Check(context.Background(), "1.0.0")
	require.NoError(t, err)
	require.Equal(t, Release{Current: "1.0.0", Latest: "1.2.0", Newer: true}, rel)
}

func TestCheckHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(srv.URL+"/version.txt", srv.URL).Check(context.Background(), "1.0.0")
	require.ErrorContains(t, err, "404")
}

func TestCheckServerErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL+"/version.txt", srv.URL).Check(context.Background(), "1.0.0")
	require.ErrorContains(t, err, "503")
	require.EqualValues(t, 1, hits.Load())
}

func TestApplyReplacesExecutable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/releases/"+AssetName() {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("new binary"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "autoform")
	require.NoError(t, os.WriteFile(path, []byte("old binary"), 0o755))

	u := New(srv.URL+"/version.txt", srv.URL+"/releases/")
	require.NoError(t, u.Apply(context.Background(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new binary", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".autoform-update-")
	}
}

func TestApplyKeepsExecutableOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "autoform")
	require.NoError(t, os.WriteFile(path, []byte("old binary"), 0o755))

	err := New(srv.URL+"/version.txt", srv.URL).Apply(context.Background(), path)
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old binary", string(data))
}
