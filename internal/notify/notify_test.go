package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonletto/threadtrack/internal/logx"
)

type recordingNotifier struct {
	name string
	err  error

	mu    sync.Mutex
	calls []string
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Deliver(_ context.Context, title, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, title+"|"+body)
	return r.err
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{name: "ok"}
	bad := &recordingNotifier{name: "bad", err: errors.New("offline")}
	last := &recordingNotifier{name: "last"}

	err := Multi{bad, ok, last}.Deliver(context.Background(), "/g/ - 1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: offline")
	assert.ErrorIs(t, err, bad.err)

	assert.Equal(t, []string{"/g/ - 1|hi"}, ok.calls)
	assert.Equal(t, []string{"/g/ - 1|hi"}, last.calls)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Deliver(context.Background(), "t", "b"))
}

func TestFunc(t *testing.T) {
	var got string
	n := Func(func(_ context.Context, title, body string) error {
		got = title + body
		return nil
	})
	require.NoError(t, n.Deliver(context.Background(), "a", "b"))
	assert.Equal(t, "ab", got)
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	n := Log{Logger: logx.New(logx.Config{Level: "info", JSON: true, Out: &buf})}

	require.NoError(t, n.Deliver(context.Background(), "/g/ - 555", "new reply"))
	assert.Contains(t, buf.String(), `"title":"/g/ - 555"`)
	assert.Contains(t, buf.String(), `"body":"new reply"`)
}

func TestDesktop_UsesBus(t *testing.T) {
	var busCalls, cmdCalls int
	d := &Desktop{
		bus: func(_ context.Context, app, title, body string, expire time.Duration) error {
			busCalls++
			assert.Equal(t, "threadtrack", app)
			assert.Equal(t, 10*time.Second, expire)
			return nil
		},
		run: func(context.Context, string, ...string) error {
			cmdCalls++
			return nil
		},
	}

	require.NoError(t, d.Deliver(context.Background(), "t", "b"))
	assert.Equal(t, 1, busCalls)
	assert.Zero(t, cmdCalls)
}

func TestDesktop_FallsBackToCommand(t *testing.T) {
	var gotName string
	var gotArgs []string
	d := &Desktop{
		AppName: "tt",
		Expire:  3 * time.Second,
		bus: func(context.Context, string, string, string, time.Duration) error {
			return errors.New("no session bus")
		},
		run: func(_ context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			return nil
		},
	}

	require.NoError(t, d.Deliver(context.Background(), "/g/ - 1", "body"))
	assert.Equal(t, "notify-send", gotName)
	assert.Equal(t, []string{"-a", "tt", "-t", "3000", "/g/ - 1", "body"}, gotArgs)
}

func TestDesktop_ClampsExpire(t *testing.T) {
	var gotExpire time.Duration
	var gotArgs []string
	d := &Desktop{
		Expire: 1000 * time.Hour,
		bus: func(_ context.Context, _, _, _ string, expire time.Duration) error {
			gotExpire = expire
			return errors.New("no session bus")
		},
		run: func(_ context.Context, _ string, args ...string) error {
			gotArgs = args
			return nil
		},
	}

	require.NoError(t, d.Deliver(context.Background(), "t", "b"))
	assert.Equal(t, maxExpire, gotExpire)
	assert.LessOrEqual(t, gotExpire.Milliseconds(), int64(math.MaxInt32))
	assert.Equal(t, "2147483647", gotArgs[3])
}

func TestDesktop_BothFail(t *testing.T) {
	d := &Desktop{
		bus: func(context.Context, string, string, string, time.Duration) error {
			return errors.New("no session bus")
		},
		run: func(context.Context, string, ...string) error {
			return errors.New("executable file not found")
		},
	}

	err := d.Deliver(context.Background(), "t", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session bus")
	assert.Contains(t, err.Error(), "executable file not found")
}

func TestTelegram_Deliver(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/bot123:abc/sendMessage"), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		form = parseTelegramBody(t, r.Header.Get("Content-Type"), body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":1700000000,"chat":{"id":42,"type":"private"},"text":"x"}}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(TelegramOptions{Token: "123:abc", ChatID: 42, APIURL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, tg.Deliver(context.Background(), "/g/ - 555", "new reply"))
	assert.Equal(t, "42", form.Get("chat_id"))
	assert.Equal(t, "/g/ - 555\nnew reply", form.Get("text"))
}

func TestTelegram_Validation(t *testing.T) {
	_, err := NewTelegram(TelegramOptions{ChatID: 1})
	assert.Error(t, err)
	_, err = NewTelegram(TelegramOptions{Token: "x"})
	assert.Error(t, err)
}

// parseTelegramBody accepts both JSON and form encodings of a Bot API call.
func parseTelegramBody(t *testing.T, contentType string, body []byte) url.Values {
	t.Helper()
	if strings.HasPrefix(contentType, "application/json") {
		var m map[string]any
		require.NoError(t, json.Unmarshal(body, &m))
		out := url.Values{}
		for k, v := range m {
			out.Set(k, fmt.Sprint(v))
		}
		return out
	}
	vals, err := url.ParseQuery(string(body))
	require.NoError(t, err)
	return vals
}
