package msgraph_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/effective-security/mailagent/msgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, tokenCount *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "https://graph.microsoft.com/.default", r.Form.Get("scope"))

		tokenCount.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
}

func testConfig(graphURL, tokenURL string) msgraph.Config {
	return msgraph.Config{
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		TargetUser:   "mailbox@example.com",
		BaseURL:      graphURL,
		TokenURL:     tokenURL,
	}
}

func TestClientGet(t *testing.T) {
	t.Parallel()

	var tokens atomic.Int64
	tokenSrv := newTokenServer(t, &tokens)
	defer tokenSrv.Close()

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/me", r.URL.Path)
		_, _ = w.Write([]byte(`{"displayName":"Mailbox"}`))
	}))
	defer graphSrv.Close()

	client := msgraph.NewClient(testConfig(graphSrv.URL, tokenSrv.URL))
	raw, err := client.Get(context.Background(), "/me")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Mailbox")
	assert.Equal(t, int64(1), tokens.Load())
}

func TestClientTokenRefreshOn401(t *testing.T) {
	t.Parallel()

	var tokens atomic.Int64
	tokenSrv := newTokenServer(t, &tokens)
	defer tokenSrv.Close()

	var requests atomic.Int64
	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, `{"error":{"code":"InvalidAuthenticationToken"}}`, http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer graphSrv.Close()

	client := msgraph.NewClient(testConfig(graphSrv.URL, tokenSrv.URL))
	raw, err := client.Get(context.Background(), "/me")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ok")
	assert.Equal(t, int64(2), requests.Load())
	assert.Equal(t, int64(2), tokens.Load())
}

func TestClientErrorStatus(t *testing.T) {
	t.Parallel()

	var tokens atomic.Int64
	tokenSrv := newTokenServer(t, &tokens)
	defer tokenSrv.Close()

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"ErrorItemNotFound"}}`, http.StatusNotFound)
	}))
	defer graphSrv.Close()

	client := msgraph.NewClient(testConfig(graphSrv.URL, tokenSrv.URL))
	_, err := client.Get(context.Background(), "/users/x/messages/y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestGetFullEmail(t *testing.T) {
	t.Parallel()

	var tokens atomic.Int64
	tokenSrv := newTokenServer(t, &tokens)
	defer tokenSrv.Close()

	message := map[string]any{
		"id":      "msg-1",
		"subject": "VPN access request",
		"body": map[string]any{
			"contentType": "html",
			"content":     "<p>please grant access</p>",
		},
		"from": map[string]any{
			"emailAddress": map[string]any{"name": "Juan", "address": "juan@example.com"},
		},
		"receivedDateTime": "2026-08-29T10:00:00Z",
		"hasAttachments":   true,
	}
	attachments := map[string]any{
		"value": []map[string]any{
			{"id": "att-1", "name": "form.pdf", "contentType": "application/pdf", "size": 1234},
		},
	}

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/mailbox@example.com/messages/msg-1":
			assert.Equal(t, "$expand=attachments", r.URL.RawQuery)
			_ = json.NewEncoder(w).Encode(message)
		case r.URL.Path == "/users/mailbox@example.com/messages/msg-1/attachments":
			_ = json.NewEncoder(w).Encode(attachments)
		default:
			http.NotFound(w, r)
		}
	}))
	defer graphSrv.Close()

	client := msgraph.NewClient(testConfig(graphSrv.URL, tokenSrv.URL))
	ops := msgraph.NewEmailOperations(client)

	msg, err := ops.GetFullEmail(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "VPN access request", msg.Subject)
	// attachments were fetched separately since the expand returned none
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "form.pdf", msg.Attachments[0].Name)

	fields := msgraph.ExtractFields(msg)
	assert.Equal(t, "VPN access request", fields.Subject)
	assert.Equal(t, "juan@example.com", fields.Sender)
	assert.Equal(t, "html", fields.BodyType)
	assert.True(t, fields.HasAttachments)
}

func TestExtractFieldsDefaults(t *testing.T) {
	t.Parallel()

	fields := msgraph.ExtractFields(&msgraph.Message{Subject: "s"})
	assert.Equal(t, "unknown", fields.Sender)
	assert.Equal(t, "text", fields.BodyType)
}

func TestMailTool(t *testing.T) {
	t.Parallel()

	var tokens atomic.Int64
	tokenSrv := newTokenServer(t, &tokens)
	defer tokenSrv.Close()

	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "msg-1",
			"subject": "Password reset",
			"body": map[string]any{
				"contentType": "html",
				"content":     "<p>Favor restablecer la contrase&ntilde;a</p><p>Saludos cordiales</p><p>Juan</p>",
			},
			"from": map[string]any{
				"emailAddress": map[string]any{"address": "juan@example.com"},
			},
			"receivedDateTime": "2026-08-29T10:00:00Z",
			"hasAttachments":   false,
		})
	}))
	defer graphSrv.Close()

	tool, err := msgraph.NewMailTool(msgraph.NewClient(testConfig(graphSrv.URL, tokenSrv.URL)))
	require.NoError(t, err)
	assert.Equal(t, "read_email", tool.Name())
	assert.NotEmpty(t, tool.Description())
	assert.NotNil(t, tool.Parameters())

	out, err := tool.Call(context.Background(), `{"message_id":"msg-1"}`)
	require.NoError(t, err)

	var res msgraph.ReadEmailResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Password reset", res.Subject)
	assert.Equal(t, "juan@example.com", res.Sender)
	assert.Contains(t, res.Body, "restablecer la contrasena")
	assert.NotContains(t, res.Body, "Saludos")

	_, err = tool.Call(context.Background(), `{}`)
	require.Error(t, err)
}
