package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/api"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
	"github.com/aussiebroadwan/qrauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func newClient(exchangeURL string) *api.Client {
	return &api.Client{
		ProtocolVersion: 2,
		ExchangeURL:     exchangeURL,
		Logger:          slogx.Discard(),
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		seen = r.Clone(context.Background())
		seen.PostForm = r.PostForm

		w.Header().Set(api.HeaderProtocolVersion, "3")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"responseCode":"SUCCESS"}`))
	}))
	defer server.Close()

	client := newClient("")
	resp, serverVersion, err := client.Authenticate(context.Background(), server.URL, api.AuthenticateRequest{
		SessionKey:        "sess-abc",
		UserID:            "alice",
		Response:          "123456",
		Language:          "en",
		NotificationToken: "notif-token",
	})
	require.NoError(t, err)
	require.Equal(t, domain.ResultSuccess, resp.Code)
	require.Equal(t, 3, serverVersion)

	require.Equal(t, "login", seen.PostForm.Get("operation"))
	require.Equal(t, "sess-abc", seen.PostForm.Get("sessionKey"))
	require.Equal(t, "alice", seen.PostForm.Get("userId"))
	require.Equal(t, "123456", seen.PostForm.Get("response"))
	require.Equal(t, "notif-token", seen.PostForm.Get("notificationAddress"))
	require.Equal(t, "2", seen.Header.Get(api.HeaderProtocolVersion))
	require.Equal(t, "application/json", seen.Header.Get("Accept"))
}

func TestAuthenticateDecodesErrorStatusBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(api.HeaderProtocolVersion, "3")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"responseCode":"INVALID_RESPONSE","attemptsLeft":2}`))
	}))
	defer server.Close()

	resp, _, err := newClient("").Authenticate(context.Background(), server.URL, api.AuthenticateRequest{})
	require.NoError(t, err)
	require.Equal(t, domain.ResultInvalidResponse, resp.Code)
	require.NotNil(t, resp.AttemptsLeft)
	require.Equal(t, 2, *resp.AttemptsLeft)
}

func TestAuthenticateMalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	_, _, err := newClient("").Authenticate(context.Background(), server.URL, api.AuthenticateRequest{})
	var decodeErr *api.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestAuthenticateUnknownResultCode(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responseCode":"SOMETHING_NEW"}`))
	}))
	defer server.Close()

	_, _, err := newClient("").Authenticate(context.Background(), server.URL, api.AuthenticateRequest{})
	var decodeErr *api.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestAuthenticateNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	_, _, err := newClient("").Authenticate(context.Background(), server.URL, api.AuthenticateRequest{})
	var transportErr *api.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestAuthenticateHonoursCancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The body must be consumed before the server can notice the
		// client going away.
		_, _ = io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, _, err := newClient("").Authenticate(ctx, server.URL, api.AuthenticateRequest{})
	var transportErr *api.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestRegisterDeviceToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "device-1", r.PostForm.Get("deviceToken"))
		require.Equal(t, "old-token", r.PostForm.Get("notificationToken"))
		_, _ = w.Write([]byte("new-token\n"))
	}))
	defer server.Close()

	token, err := newClient(server.URL).RegisterDeviceToken(context.Background(), "device-1", "old-token")
	require.NoError(t, err)
	require.Equal(t, "new-token", token)
}

func TestRegisterDeviceTokenNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(api.TokenNotFound))
	}))
	defer server.Close()

	token, err := newClient(server.URL).RegisterDeviceToken(context.Background(), "device-1", "")
	require.NoError(t, err)
	require.Equal(t, api.TokenNotFound, token)
}
