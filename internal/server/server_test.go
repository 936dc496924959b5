package server

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvald/interactions/internal/feed"
	"github.com/rvald/interactions/internal/interactions"
	"github.com/rvald/interactions/internal/signature"
)

// MockHandler allows overriding Handle per test.
type MockHandler struct {
	HandleFn func(ctx context.Context, req interactions.Request) interactions.Reply
}

func (m *MockHandler) Handle(ctx context.Context, req interactions.Request) interactions.Reply {
	if m.HandleFn != nil {
		return m.HandleFn(ctx, req)
	}
	return interactions.Reply{Status: http.StatusOK, ContentType: "application/json", Body: []byte(`{"type":1}`)}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startServer(t *testing.T, cfg Config, h Handler) *Server {
	t.Helper()
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	cfg.Logger = quietLogger()
	srv := NewServer(cfg, h)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.ListenAndServe(ctx)
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	return srv
}

func TestServer_ForwardsInteraction(t *testing.T) {
	var got interactions.Request
	h := &MockHandler{HandleFn: func(ctx context.Context, req interactions.Request) interactions.Reply {
		got = req
		return interactions.Reply{Status: http.StatusOK, ContentType: "application/json", Body: []byte(`{"type":1}`)}
	}}
	srv := startServer(t, Config{InteractionsPath: "/discord"}, h)

	req, err := http.NewRequest(http.MethodPost, "http://"+srv.Addr()+"/discord", strings.NewReader(`{"type":1}`))
	require.NoError(t, err)
	req.Header.Set(signature.HeaderSignature, "abcd")
	req.Header.Set(signature.HeaderTimestamp, "1700000000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"type":1}`, string(body))

	assert.Equal(t, `{"type":1}`, string(got.Body))
	assert.Equal(t, "abcd", got.Signature)
	assert.Equal(t, "1700000000", got.Timestamp)
	assert.NotNil(t, got.Logger)
}

func TestServer_RejectsWrongMethodAndPath(t *testing.T) {
	srv := startServer(t, Config{}, &MockHandler{})

	resp, err := http.Get("http://" + srv.Addr() + "/interactions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post("http://"+srv.Addr()+"/other", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_BodyTooLarge(t *testing.T) {
	called := false
	srv := startServer(t, Config{}, &MockHandler{HandleFn: func(context.Context, interactions.Request) interactions.Reply {
		called = true
		return interactions.Reply{Status: http.StatusOK}
	}})

	resp, err := http.Post("http://"+srv.Addr()+"/interactions", "application/json", bytes.NewReader(make([]byte, MaxBodyBytes+1)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.False(t, called)
}

func TestServer_RequestIDPropagation(t *testing.T) {
	srv := startServer(t, Config{}, &MockHandler{})
	const id = "6f1d3f7e-52a4-4f0b-9a57-1d2c3b4a5e6f"

	req, _ := http.NewRequest(http.MethodGet, "http://"+srv.Addr()+"/health", nil)
	req.Header.Set(HeaderRequestID, id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(HeaderRequestID))

	req.Header.Set(HeaderRequestID, "not-a-uuid")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get(HeaderRequestID))
	assert.Len(t, resp.Header.Get(HeaderRequestID), 36)
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := startServer(t, Config{}, &MockHandler{})
	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv := startServer(t, Config{}, &MockHandler{})
	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "interactions_feed_subscribers")
}

func TestServer_EventsMountedOnlyWithFeed(t *testing.T) {
	plain := startServer(t, Config{}, &MockHandler{})
	resp, err := http.Get("http://" + plain.Addr() + "/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	hub := feed.NewHub("secret", quietLogger())
	t.Cleanup(hub.Close)
	withFeed := startServer(t, Config{Feed: hub}, &MockHandler{})
	ws, _, err := websocket.DefaultDialer.Dial("ws://"+withFeed.Addr()+"/events", http.Header{"Authorization": []string{"Bearer secret"}})
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_ShutdownOnContextCancel(t *testing.T) {
	srv := NewServer(Config{Addr: "127.0.0.1:0", Logger: quietLogger()}, &MockHandler{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestServer_EndToEndWithDispatcher(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	verifier, err := signature.NewVerifier(hex.EncodeToString(pub), signature.WithLogger(quietLogger()))
	require.NoError(t, err)
	d := interactions.New(verifier, interactions.WithLogger(quietLogger()))
	srv := startServer(t, Config{}, d)

	post := func(body, sig string) *http.Response {
		req, _ := http.NewRequest(http.MethodPost, "http://"+srv.Addr()+"/interactions", strings.NewReader(body))
		req.Header.Set(signature.HeaderSignature, sig)
		req.Header.Set(signature.HeaderTimestamp, "1700000000")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	body := `{"id":"1","application_id":"a","type":1,"token":"t","version":1}`
	sig := hex.EncodeToString(ed25519.Sign(priv, []byte("1700000000"+body)))

	resp := post(body, sig)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"type":1}`, string(got))

	bad := post(body, strings.Repeat("00", 64))
	defer bad.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
}
