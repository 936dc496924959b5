package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultScope is the scope needed to overwrite application commands.
	DefaultScope = "applications.commands.update"

	// BypassToken is the synthetic access token handed out when registration
	// calls are disabled.
	BypassToken = "DONT_REGISTER_WITH_DISCORD"

	// BypassLifetime is the declared lifetime of the synthetic token.
	BypassLifetime = 604800 * time.Second
)

// UpstreamError reports a non-success answer from the token endpoint.
type UpstreamError struct {
	Status int
	Code   string
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token endpoint returned %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("token endpoint returned %d: %s", e.Status, e.Body)
}

// ClientCredentials fetches tokens with the OAuth2 client-credentials grant.
type ClientCredentials struct {
	config *clientcredentials.Config
	http   *http.Client
}

// NewClientCredentials builds a fetcher against {baseURL}/oauth2/token.
// scope is space separated; an empty scope means DefaultScope.
func NewClientCredentials(baseURL, clientID, clientSecret, scope string, httpClient *http.Client) *ClientCredentials {
	if scope == "" {
		scope = DefaultScope
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ClientCredentials{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     strings.TrimRight(baseURL, "/") + "/oauth2/token",
			Scopes:       strings.Fields(scope),
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		http: httpClient,
	}
}

// Fetch performs one token request. It never retries.
func (f *ClientCredentials) Fetch(ctx context.Context) (Grant, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.http)
	start := time.Now()

	tok, err := f.config.Token(ctx)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			status := 0
			if rerr.Response != nil {
				status = rerr.Response.StatusCode
			}
			return Grant{}, &UpstreamError{Status: status, Code: rerr.ErrorCode, Body: truncate(string(rerr.Body), 512)}
		}
		return Grant{}, err
	}

	g := Grant{
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
		ExpiresIn:   expiresIn(tok, start),
	}
	if s, ok := tok.Extra("scope").(string); ok {
		g.Scope = s
	} else {
		g.Scope = strings.Join(f.config.Scopes, " ")
	}
	return g, nil
}

// expiresIn reads the declared lifetime from the raw response, falling back
// to the absolute expiry computed by the oauth2 package.
func expiresIn(tok *oauth2.Token, start time.Time) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v) * time.Second
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Duration(n) * time.Second
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Sub(start)
	}
	return 0
}

// Static hands out a fixed token without network access.
type Static struct {
	Grant Grant
}

// NewBypass returns the fetcher used when registration calls are disabled.
func NewBypass(scope string) *Static {
	if scope == "" {
		scope = DefaultScope
	}
	return &Static{Grant: Grant{
		AccessToken: BypassToken,
		TokenType:   "Bearer",
		Scope:       scope,
		ExpiresIn:   BypassLifetime,
	}}
}

func (s *Static) Fetch(ctx context.Context) (Grant, error) {
	return s.Grant, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
