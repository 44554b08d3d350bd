package chanapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonletto/threadtrack/internal/chanapi"
	"github.com/leonletto/threadtrack/internal/types"
)

const threadJSON = `{"posts":[
 {"no":555,"sub":"Daily thread","com":"first<br>post","time":1700000000,"closed":0,"archived":1},
 {"no":556,"com":"reply"},
 {"no":560,"com":"&gt;&gt;556 agreed"}
]}`

func newClient(t *testing.T, h http.Handler) *chanapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return chanapi.New(chanapi.Options{BaseURL: srv.URL, RatePerSec: 1000, UserAgent: "tt-test"})
}

func TestFetchThread_OK(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/g/thread/555.json", r.URL.Path)
		assert.Equal(t, "tt-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(threadJSON))
	}))

	snap, err := c.FetchThread(context.Background(), "g", "555")
	require.NoError(t, err)
	require.Len(t, snap.Posts, 3)

	op, ok := snap.OP()
	require.True(t, ok)
	assert.Equal(t, int64(555), op.No)
	assert.Equal(t, "Daily thread", op.Subject)
	assert.Equal(t, int64(560), snap.LastPostNo())
	assert.True(t, snap.Archived)
	assert.False(t, snap.Closed)
}

func TestFetchThread_NotFound(t *testing.T) {
	c := newClient(t, http.NotFoundHandler())

	_, err := c.FetchThread(context.Background(), "g", "1")
	assert.ErrorIs(t, err, types.ErrThreadNotFound)
}

func TestFetchThread_ServerError(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.FetchThread(context.Background(), "g", "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrThreadNotFound)

	var se *chanapi.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestFetchThread_MalformedBody(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"posts":`))
	}))

	_, err := c.FetchThread(context.Background(), "g", "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrThreadNotFound)
}

func TestFetchThread_EmptyPosts(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"posts":[]}`))
	}))

	_, err := c.FetchThread(context.Background(), "g", "1")
	assert.Error(t, err)
}

func TestFetchThread_EscapesPath(t *testing.T) {
	c := chanapi.New(chanapi.Options{BaseURL: "https://api.example/"})
	assert.Equal(t, "https://api.example/a%2Fb/thread/1%3F.json", c.ThreadURL("a/b", "1?"))
}

func TestFetchThread_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(threadJSON))
	}))
	defer srv.Close()

	c := chanapi.New(chanapi.Options{BaseURL: srv.URL, RatePerSec: 0.01})
	_, err := c.FetchThread(context.Background(), "g", "555")
	require.NoError(t, err)

	// The second call must wait ~100s for a token; the context gives up first.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.FetchThread(ctx, "g", "555")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchThread_ContextCanceled(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchThread(ctx, "g", "1")
	assert.ErrorIs(t, err, context.Canceled)
}
