package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIBase:           srv.URL,
		CDNBase:           srv.URL,
		Token:             "secret",
		Timeout:           5 * time.Second,
		DefaultRetryAfter: 7 * time.Second,
	})
}

func TestRequest_SendsBotAuthorization(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id":"1","username":"cloner"}`))
	})

	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bot secret", gotAuth)
	assert.Equal(t, "cloner", u.Username)
}

func TestAuthorization(t *testing.T) {
	assert.Equal(t, "Bot abc", authorization("abc"))
	assert.Equal(t, "Bot abc", authorization("Bot abc"))
	assert.Equal(t, "Bearer abc", authorization("Bearer abc"))
	assert.Equal(t, "", authorization("  "))
}

func TestRequest_ClassifiesStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindForbidden},
		{http.StatusNotFound, KindNotFound},
		{http.StatusBadRequest, KindBadRequest},
		{http.StatusInternalServerError, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"code":50013,"message":"Missing Permissions"}`))
			})

			err := c.DeleteRole(context.Background(), "10", "20")
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, 50013, apiErr.Code)
			assert.Equal(t, "/guilds/10/roles/20", apiErr.Path)
		})
	}
}

func TestRequest_RateLimitHints(t *testing.T) {
	t.Run("body retry_after wins", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "9")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"You are being rate limited.","retry_after":1.5,"global":false}`))
		})

		_, err := c.GuildRoles(context.Background(), "1")
		wait, ok := RetryAfter(err)
		require.True(t, ok)
		assert.Equal(t, 1500*time.Millisecond, wait)
		assert.True(t, IsRateLimited(err))
	})

	t.Run("header used when body has none", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := c.GuildRoles(context.Background(), "1")
		wait, ok := RetryAfter(err)
		require.True(t, ok)
		assert.Equal(t, 2*time.Second, wait)
	})

	t.Run("default when no hint", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := c.GuildRoles(context.Background(), "1")
		wait, ok := RetryAfter(err)
		require.True(t, ok)
		assert.Equal(t, 7*time.Second, wait)
	})
}

func TestRetryAfter_NonRateLimit(t *testing.T) {
	_, ok := RetryAfter(&APIError{Kind: KindForbidden})
	assert.False(t, ok)

	_, ok = RetryAfter(errors.New("plain"))
	assert.False(t, ok)
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestRequest_TransportErrorIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(Config{APIBase: srv.URL, Token: "t", Timeout: time.Second})
	_, err := c.Guild(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, KindUnknown, KindOf(err))
}

func TestGuildRoles_DecodesPermissions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/guilds/42/roles", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"1","name":"Mod","permissions":"8","position":3,"managed":false}]`))
	})

	roles, err := c.GuildRoles(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, int64(8), roles[0].Permissions)
	assert.Equal(t, 3, roles[0].Position)
}

func TestCreateChannel_SendsPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id":"99","name":"general","type":0}`))
	})

	ch, err := c.CreateChannel(context.Background(), "1", discordgo.GuildChannelCreateData{
		Name:     "general",
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: "5",
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{ID: "7", Type: discordgo.PermissionOverwriteTypeMember, Allow: 1024},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "99", ch.ID)
	assert.Equal(t, "general", got["name"])
	assert.Equal(t, "5", got["parent_id"])
	assert.Len(t, got["permission_overwrites"], 1)
}

func TestChannelMessages_PassesLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/5/messages", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[]`))
	})

	msgs, err := c.ChannelMessages(context.Background(), "5", 25)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessage_DisablesMentions(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id":"1"}`))
	})

	_, err := c.SendMessage(context.Background(), "5", "hello @everyone")
	require.NoError(t, err)
	assert.Equal(t, "hello @everyone", got["content"])
	mentions, ok := got["allowed_mentions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{}, mentions["parse"])
}

func TestCreateWebhook_OmitsEmptyAvatar(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"id":"1","name":"hook"}`))
	})

	_, err := c.CreateWebhook(context.Background(), "5", "hook", "")
	require.NoError(t, err)
	assert.Nil(t, got["avatar"])
	assert.Equal(t, "hook", got["name"])
}

func TestFetchAsset_ReturnsDataURI(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emojis/55.gif", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write([]byte("GIF"))
	})

	uri, err := c.FetchAsset(context.Background(), EmojiPath("55", true))
	require.NoError(t, err)
	assert.Equal(t, "data:image/gif;base64,R0lG", uri)
}

func TestFetchAsset_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.FetchAsset(context.Background(), IconPath("1", "abc"))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDataURI_FallsBackToExtension(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,eA==", DataURI("", IconPath("1", "h"), []byte("x")))
	assert.Equal(t, "data:image/gif;base64,eA==", DataURI("application/octet-stream", "/emojis/1.gif", []byte("x")))
}
