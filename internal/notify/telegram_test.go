package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botRequest struct {
	path   string
	chatID string
	text   string
	silent string
}

func fakeBot(t *testing.T, status int, body string) (*httptest.Server, func() []botRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []botRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		reqs = append(reqs, botRequest{
			path:   r.URL.Path,
			chatID: r.PostForm.Get("chat_id"),
			text:   r.PostForm.Get("text"),
			silent: r.PostForm.Get("disable_notification"),
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []botRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]botRequest(nil), reqs...)
	}
}

func TestTelegram_Send(t *testing.T) {
	srv, requests := fakeBot(t, http.StatusOK, `{"ok":true}`)
	tg := NewTelegram(TelegramConfig{Token: "123:abc", ChatID: "-100", APIBase: srv.URL + "/"})

	require.NoError(t, tg.Send(context.Background(), "❌ A: 1/2 камер работает (камеры 2)", false))

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", got[0].path)
	assert.Equal(t, "-100", got[0].chatID)
	assert.Equal(t, "❌ A: 1/2 камер работает (камеры 2)", got[0].text)
	assert.Equal(t, "false", got[0].silent)
}

func TestTelegram_MuteSetsDisableNotification(t *testing.T) {
	srv, requests := fakeBot(t, http.StatusOK, `{"ok":true}`)
	tg := NewTelegram(TelegramConfig{Token: "t", ChatID: "c", APIBase: srv.URL})

	require.NoError(t, tg.Send(context.Background(), "✅ A: 1/1 камер работает", true))
	assert.Equal(t, "true", requests()[0].silent)
}

func TestTelegram_Rejected(t *testing.T) {
	srv, _ := fakeBot(t, http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
	tg := NewTelegram(TelegramConfig{Token: "secret-token", ChatID: "c", APIBase: srv.URL})

	err := tg.Send(context.Background(), "x", false)
	require.ErrorIs(t, err, ErrTelegramRejected)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_TransportErrorHidesToken(t *testing.T) {
	srv, _ := fakeBot(t, http.StatusOK, `{"ok":true}`)
	base := srv.URL
	srv.Close()

	tg := NewTelegram(TelegramConfig{Token: "secret-token", ChatID: "c", APIBase: base, Timeout: time.Second})
	err := tg.Send(context.Background(), "x", false)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestTelegram_SplitsLongMessages(t *testing.T) {
	srv, requests := fakeBot(t, http.StatusOK, `{"ok":true}`)
	tg := NewTelegram(TelegramConfig{
		Token: "t", ChatID: "c", APIBase: srv.URL,
		MaxMessageLen: 30, PartInterval: time.Millisecond,
	})

	text := strings.Join([]string{
		"✅ Alpha: 4/4 камер работает",
		"✅ Beta: 2/2 камер работает",
		"✅ Gamma: 1/1 камер работает",
	}, "\n")
	require.NoError(t, tg.Send(context.Background(), text, true))

	got := requests()
	require.Len(t, got, 3)
	for _, r := range got {
		assert.LessOrEqual(t, utf8.RuneCountInString(r.text), 30)
	}
	assert.Equal(t, "✅ Beta: 2/2 камер работает", got[1].text)
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"empty", "", 10, nil},
		{"fits", "ab\ncd", 10, []string{"ab\ncd"}},
		{"line boundary", "aaaa\nbbbb\ncc", 9, []string{"aaaa\nbbbb", "cc"}},
		{"long line hard split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"multibyte", "ёёёёё\nжж", 5, []string{"ёёёёё", "жж"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitMessage(tt.text, tt.limit))
		})
	}
}
