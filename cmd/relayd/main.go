package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"veilchat/internal/auth"
	"veilchat/internal/directory"
	"veilchat/internal/keybundle"
	"veilchat/internal/message"
	"veilchat/internal/registry"
	"veilchat/internal/relaysrv"
	"veilchat/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "relayd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := relaysrv.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	verifier, err := auth.New(store, []byte(cfg.TokenKey))
	if err != nil {
		return err
	}

	conns := registry.New()
	dir := directory.New(store, store)
	bundles := keybundle.New(store, store, store)
	messages := message.New(store, store, conns, log)

	srv := relaysrv.New(cfg, log, verifier, dir, bundles, messages, conns)

	log.Info("relay listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("db", cfg.DatabasePath))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return nil
	})
	return g.Wait()
}
