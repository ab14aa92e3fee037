package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/fieldreport/internal/buildinfo"
	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"github.com/dmitrijs2005/fieldreport/internal/server"
	"github.com/dmitrijs2005/fieldreport/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "collector stopped", "error", err)
		os.Exit(1)
	}

}
