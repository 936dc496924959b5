package credentials

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCredentials_Fetch(t *testing.T) {
	var gotForm map[string]string
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v10/oauth2/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type": r.PostForm.Get("grant_type"),
			"scope":      r.PostForm.Get("scope"),
		}
		gotUser, gotPass, _ = r.BasicAuth()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":604800,"scope":"applications.commands.update"}`))
	}))
	defer srv.Close()

	f := NewClientCredentials(srv.URL+"/api/v10", "client-id", "s3cret", "", srv.Client())
	grant, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "client_credentials", gotForm["grant_type"])
	assert.Equal(t, DefaultScope, gotForm["scope"])
	assert.Equal(t, "client-id", gotUser)
	assert.Equal(t, "s3cret", gotPass)

	assert.Equal(t, "abc", grant.AccessToken)
	assert.Equal(t, "Bearer", grant.TokenType)
	assert.Equal(t, DefaultScope, grant.Scope)
	assert.Equal(t, 604800*time.Second, grant.ExpiresIn)
}

func TestClientCredentials_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	f := NewClientCredentials(srv.URL, "client-id", "wrong", "applications.commands.update", srv.Client())
	_, err := f.Fetch(context.Background())
	require.Error(t, err)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusUnauthorized, upErr.Status)
	assert.Equal(t, "invalid_client", upErr.Code)
}

func TestClientCredentials_WithCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	cache := NewCache(NewClientCredentials(srv.URL, "id", "secret", "", srv.Client()))
	for i := 0; i < 3; i++ {
		header, err := cache.AuthHeader(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer abc", header)
	}
	assert.Equal(t, 1, hits)
}
