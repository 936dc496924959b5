package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rvald/interactions/internal/commands"
	"github.com/rvald/interactions/internal/discovery"
	"github.com/rvald/interactions/internal/feed"
	"github.com/rvald/interactions/internal/interactions"
	"github.com/rvald/interactions/internal/metrics"
	"github.com/rvald/interactions/internal/server"
	"github.com/rvald/interactions/internal/signature"
	"github.com/spf13/cobra"
)

var (
	serveAddr      string
	servePath      string
	serveFeedToken string
	serveAdvertise bool
	serveInstance  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactions endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.HTTPAddr = serveAddr
		}
		if cmd.Flags().Changed("path") {
			cfg.InteractionsPath = servePath
		}
		if cmd.Flags().Changed("feed-token") {
			cfg.FeedToken = serveFeedToken
		}
		if err := cfg.ValidateForServe(); err != nil {
			return err
		}
		return runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default $HTTP_ADDR)")
	serveCmd.Flags().StringVar(&servePath, "path", "", "Interactions endpoint path (default $INTERACTIONS_PATH)")
	serveCmd.Flags().StringVar(&serveFeedToken, "feed-token", "", "Bearer token enabling the /events feed (default $FEED_TOKEN)")
	serveCmd.Flags().BoolVar(&serveAdvertise, "advertise", false, "Advertise the endpoint over mDNS")
	serveCmd.Flags().StringVar(&serveInstance, "instance", "", "mDNS instance name (default hostname)")
	rootCmd.AddCommand(serveCmd)
}

func newDispatcher(observers ...interactions.Observer) (*interactions.Dispatcher, error) {
	verifier, err := signature.NewVerifier(cfg.PublicKey,
		signature.WithBypass(bool(cfg.DontValidateSignature)),
		signature.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("signature verifier: %w", err)
	}

	opts := []interactions.Option{
		interactions.WithLogger(slog.Default()),
		interactions.WithStrictMerge(bool(cfg.StrictMerge)),
		interactions.WithErrorReplies(bool(cfg.ErrorReplies)),
		interactions.WithObserver(metrics.Observer{}),
	}
	for _, o := range observers {
		opts = append(opts, interactions.WithObserver(o))
	}
	d := interactions.New(verifier, opts...)

	bp, err := commands.Blueprint()
	if err != nil {
		return nil, err
	}
	if err := d.RegisterBlueprint(bp); err != nil {
		return nil, err
	}
	return d, nil
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := feed.NewHub(cfg.FeedToken, slog.Default())
	defer hub.Close()

	d, err := newDispatcher(hub)
	if err != nil {
		return err
	}

	srvCfg := server.Config{
		Addr:             cfg.HTTPAddr,
		InteractionsPath: cfg.InteractionsPath,
		Logger:           slog.Default(),
	}
	if hub.Enabled() {
		srvCfg.Feed = hub
	}
	srv := server.NewServer(srvCfg, d)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	addr, err := waitForAddr(srv, errCh)
	if err != nil {
		return err
	}

	if serveAdvertise {
		adv, err := startAdvertiser(addr)
		if err != nil {
			slog.Warn("mDNS advertisement unavailable", "error", err)
		} else {
			defer adv.Stop()
		}
	}

	printBanner(addr, hub.Enabled(), serveAdvertise)
	slog.Info("serving interactions",
		"addr", addr,
		"path", cfg.InteractionsPath,
		"commands", d.Commands().Len(),
		"handlers", d.Handlers().Len(),
		"signature_bypass", bool(cfg.DontValidateSignature),
	)

	err = <-errCh
	slog.Info("server stopped")
	return err
}

// waitForAddr blocks until the listener is bound or the server fails.
func waitForAddr(srv *server.Server, errCh chan error) (string, error) {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if addr := srv.Addr(); addr != "" {
			return addr, nil
		}
		select {
		case err := <-errCh:
			if err == nil {
				err = fmt.Errorf("server exited before listening")
			}
			return "", err
		case <-tick.C:
		}
	}
}

func startAdvertiser(addr string) (*discovery.Advertiser, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	instance := serveInstance
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("instance name: %w", err)
		}
		instance = "interactions-" + host
	}
	adv, err := discovery.NewAdvertiser(discovery.Config{
		InstanceName: instance,
		Port:         port,
		Meta: discovery.Metadata{
			Path:    cfg.InteractionsPath,
			AppID:   cfg.ClientID,
			Version: version,
		},
		Logger: slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	if err := adv.Start(); err != nil {
		return nil, err
	}
	return adv, nil
}

func printBanner(addr string, feedEnabled, advertised bool) {
	sig := "ed25519"
	if cfg.DontValidateSignature {
		sig = "BYPASSED"
	}
	feedStatus := "disabled"
	if feedEnabled {
		feedStatus = "ws://" + addr + "/events"
	}
	mdnsStatus := "disabled"
	if advertised {
		mdnsStatus = discovery.ServiceType
	}

	fmt.Printf("\n")
	fmt.Printf("  interactions v%s\n", version)
	fmt.Printf("  http://%s%s  signature=%s  env=%s\n", addr, cfg.InteractionsPath, sig, cfg.AppEnv)
	fmt.Printf("  feed: %s  mdns: %s\n", feedStatus, mdnsStatus)
	fmt.Printf("  state: %s\n", cfg.StateDir)
	fmt.Printf("  health: http://%s/health  metrics: http://%s/metrics\n", addr, addr)
	fmt.Printf("\n")
}
