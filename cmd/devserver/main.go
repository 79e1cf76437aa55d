package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/tokenrefresh/internal/buildinfo"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage"
	"github.com/dmitrijs2005/tokenrefresh/internal/devserver"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := devserver.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logging.New(logging.FormatText, "info", os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	backend, err := storage.Open(ctx, cfg.StoreDSN, storage.Options{RedisPrefix: "devserver:"})
	if err != nil {
		log.Error(ctx, "open refresh token store", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	srv := devserver.New(cfg, backend, log)
	pair, err := srv.IssuePair(ctx, cfg.User)
	if err != nil {
		log.Error(ctx, "issue startup tokens", "error", err)
		os.Exit(1)
	}

	fmt.Printf("user:          %s\naccess token:  %s\nrefresh token: %s\n", cfg.User, pair.AccessToken, pair.RefreshToken)
	fmt.Println("paste both into the client's import command")

	if err := srv.Run(ctx); err != nil {
		log.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}

}
