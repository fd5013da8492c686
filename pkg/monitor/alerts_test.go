package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertManager(t *testing.T) {
	alert := Alert{Level: AlertWarning, Message: "circuit breaker opened", Source: "risk"}

	t.Run("Log Only", func(t *testing.T) {
		assert.NoError(t, NewAlertManager("", nil).Send(context.Background(), alert))
	})

	t.Run("Webhook", func(t *testing.T) {
		var got map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		require.NoError(t, NewAlertManager(server.URL, nil).Send(context.Background(), alert))
		assert.Equal(t, "[WARNING] risk: circuit breaker opened", got["text"])
	})

	t.Run("Webhook Failure Is Reported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		err := NewAlertManager(server.URL, nil).Send(context.Background(), alert)
		assert.ErrorContains(t, err, "502")
	})

	t.Run("Telegram", func(t *testing.T) {
		var path string
		var got map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		tg := NewTelegramAlerter("123:abc", "-10042")
		tg.baseURL = server.URL

		require.NoError(t, NewAlertManager("", tg).Send(context.Background(), alert))
		assert.Equal(t, "/bot123:abc/sendMessage", path)
		assert.Equal(t, "-10042", got["chat_id"])
		assert.Equal(t, "Markdown", got["parse_mode"])
		assert.Contains(t, got["text"], "circuit breaker opened")
	})
}
