// Command interactions-lambda serves the interactions endpoint from AWS
// Lambda behind an API Gateway HTTP API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/rvald/interactions/internal/commands"
	"github.com/rvald/interactions/internal/config"
	"github.com/rvald/interactions/internal/interactions"
	"github.com/rvald/interactions/internal/logger"
	"github.com/rvald/interactions/internal/server"
	"github.com/rvald/interactions/internal/signature"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	// CloudWatch collects stdout; the function has no durable state dir.
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	d, err := newDispatcher(cfg, log)
	if err != nil {
		return err
	}

	log.Info("lambda handler ready", "commands", d.Commands().Len(), "handlers", d.Handlers().Len())
	lambda.Start(server.LambdaHandler(d, log))
	return nil
}

// newDispatcher builds the dispatcher for the function. It records no
// metrics: nothing scrapes a Lambda process.
func newDispatcher(cfg *config.Config, log *slog.Logger) (*interactions.Dispatcher, error) {
	verifier, err := signature.NewVerifier(cfg.PublicKey,
		signature.WithBypass(bool(cfg.DontValidateSignature)),
		signature.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("signature verifier: %w", err)
	}
	d := interactions.New(verifier,
		interactions.WithLogger(log),
		interactions.WithStrictMerge(bool(cfg.StrictMerge)),
		interactions.WithErrorReplies(bool(cfg.ErrorReplies)),
	)
	bp, err := commands.Blueprint()
	if err != nil {
		return nil, err
	}
	if err := d.RegisterBlueprint(bp); err != nil {
		return nil, err
	}
	return d, nil
}
