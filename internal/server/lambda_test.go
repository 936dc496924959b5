package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvald/interactions/internal/interactions"
)

func TestLambdaHandler(t *testing.T) {
	var got interactions.Request
	h := &MockHandler{HandleFn: func(ctx context.Context, req interactions.Request) interactions.Reply {
		got = req
		return interactions.Reply{Status: http.StatusOK, ContentType: "application/json", Body: []byte(`{"type":1}`)}
	}}
	fn := LambdaHandler(h, quietLogger())

	tests := []struct {
		name string
		req  events.APIGatewayV2HTTPRequest
	}{
		{
			name: "plain body, lowercase headers",
			req: events.APIGatewayV2HTTPRequest{
				Headers: map[string]string{"x-signature-ed25519": "sig", "x-signature-timestamp": "ts"},
				Body:    `{"type":1}`,
			},
		},
		{
			name: "base64 body, canonical headers",
			req: events.APIGatewayV2HTTPRequest{
				Headers:         map[string]string{"X-Signature-Ed25519": "sig", "X-Signature-Timestamp": "ts"},
				Body:            base64.StdEncoding.EncodeToString([]byte(`{"type":1}`)),
				IsBase64Encoded: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = interactions.Request{}
			res, err := fn(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, "application/json", res.Headers["Content-Type"])
			assert.JSONEq(t, `{"type":1}`, res.Body)

			assert.Equal(t, `{"type":1}`, string(got.Body))
			assert.Equal(t, "sig", got.Signature)
			assert.Equal(t, "ts", got.Timestamp)
		})
	}
}

func TestLambdaHandler_BadBase64(t *testing.T) {
	called := false
	fn := LambdaHandler(&MockHandler{HandleFn: func(context.Context, interactions.Request) interactions.Reply {
		called = true
		return interactions.Reply{Status: http.StatusOK}
	}}, quietLogger())

	res, err := fn(context.Background(), events.APIGatewayV2HTTPRequest{Body: "%%%", IsBase64Encoded: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.JSONEq(t, `{"error":400}`, res.Body)
	assert.False(t, called)
}

func TestLambdaHandler_PassesRejection(t *testing.T) {
	fn := LambdaHandler(&MockHandler{HandleFn: func(context.Context, interactions.Request) interactions.Reply {
		return interactions.Reply{Status: http.StatusUnauthorized, ContentType: "application/json", Body: []byte(`{"error":401}`)}
	}}, nil)

	res, err := fn(context.Background(), events.APIGatewayV2HTTPRequest{Body: `{}`})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
