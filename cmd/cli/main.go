package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fieldreport/internal/buildinfo"
	"github.com/dmitrijs2005/fieldreport/internal/client/cli"
	"github.com/dmitrijs2005/fieldreport/internal/client/config"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
)

func main() {

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(func(ctx context.Context) (*cli.App, error) {
		return cli.NewApp(ctx, cfg, logger)
	})
	root.Version = buildinfo.String()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}

}
