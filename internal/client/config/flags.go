package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldreport/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, so cobra subcommands and their flags pass through.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-e", "-m", "-d", "-i", "-s", "-t", "-g", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.EndpointURL, "e", cfg.EndpointURL, "submission endpoint url")
	fs.StringVar(&cfg.BodyMode, "m", cfg.BodyMode, "request body mode (json|multipart)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "local database dsn")
	fs.StringVar(&cfg.HealthCheckAddr, "g", cfg.HealthCheckAddr, "grpc health check address")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	sweepInterval := fs.Int("s", int(cfg.SweepInterval.Seconds()), "retry sweep interval (in seconds)")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Interval flags are whole seconds; only the ones actually passed
	// replace values that may have come from the file with finer precision.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		case "s":
			cfg.SweepInterval = time.Duration(*sweepInterval) * time.Second
		case "t":
			cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
		}
	})
}
