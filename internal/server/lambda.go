package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/rvald/interactions/internal/interactions"
	"github.com/rvald/interactions/internal/signature"
)

// LambdaFunc handles API Gateway HTTP API (payload v2) events.
type LambdaFunc func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// LambdaHandler adapts h to API Gateway HTTP API events. Header lookup is
// case-insensitive and base64 bodies are decoded.
func LambdaHandler(h Handler, logger *slog.Logger) LambdaFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		l := logger
		if id := req.RequestContext.RequestID; id != "" {
			l = logger.With("request_id", id)
		}

		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				l.Info("undecodable lambda body", "error", err)
				return lambdaStatus(http.StatusBadRequest), nil
			}
			body = decoded
		}
		if len(body) > MaxBodyBytes {
			return lambdaStatus(http.StatusRequestEntityTooLarge), nil
		}

		reply := h.Handle(ctx, interactions.Request{
			Body:      body,
			Signature: header(req.Headers, signature.HeaderSignature),
			Timestamp: header(req.Headers, signature.HeaderTimestamp),
			Logger:    l,
		})

		res := events.APIGatewayV2HTTPResponse{
			StatusCode: reply.Status,
			Body:       string(reply.Body),
			Headers:    map[string]string{},
		}
		if reply.ContentType != "" {
			res.Headers["Content-Type"] = reply.ContentType
		}
		return res, nil
	}
}

func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func lambdaStatus(status int) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       fmt.Sprintf(`{"error":%d}`, status),
	}
}
