package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch r.URL.Path {
		case "/opensearch.tar.gz":
			w.Header().Set("Content-Length", "1024")
			w.WriteHeader(http.StatusOK)
		case "/moved.tar.gz":
			http.Redirect(w, r, "/opensearch.tar.gz", http.StatusFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	results := New(5*time.Second).Check(context.Background(), []Target{
		{Name: "distribution", URL: srv.URL + "/opensearch.tar.gz"},
		{Name: "redirected", URL: srv.URL + "/moved.tar.gz"},
		{Name: "dashboards", URL: srv.URL + "/missing.tar.gz"},
		{Name: "skipped", URL: ""},
		{Name: "local", URL: "file:///tmp/opensearch.tar.gz"},
	})
	require.Len(t, results, 4)
	require.True(t, results[0].OK())
	require.Equal(t, int64(1024), results[0].ContentLength)
	require.True(t, results[1].OK())
	require.Equal(t, http.StatusNotFound, results[2].StatusCode)
	require.ErrorIs(t, results[2].Err, ErrUnreachable)
	require.ErrorIs(t, results[3].Err, ErrUnreachable)

	err := Err(results)
	require.ErrorIs(t, err, ErrUnreachable)
	require.Contains(t, err.Error(), "dashboards")
	require.NotContains(t, err.Error(), "distribution")
	require.NoError(t, Err(results[:2]))
}
