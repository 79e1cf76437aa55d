package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/tokenrefresh/internal/buildinfo"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/cli"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/config"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "client start failed", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
