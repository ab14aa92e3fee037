// Package config loads runtime configuration for the fieldreport CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (see parseFile) selected via flags: -c or -config.
//     The decoder is picked by extension: .json, .toml, .yaml/.yml.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-e string   submission endpoint URL
//	-m string   request body mode: json | multipart
//	-d string   local SQLite database DSN
//	-i int      online status check interval (seconds)
//	-s int      retry sweep interval (seconds, 0 disables periodic sweeps)
//	-t int      request timeout (seconds)
//	-g string   host:port of the collector's gRPC health service
//	-l string   log level: debug | info | warn | error
//
// # File schema
//
// Intervals use timex.Duration, so JSON values can be either strings like
// "3s" or integer nanoseconds; TOML and YAML take strings:
//
//	endpoint_url = "http://127.0.0.1:8080/submit"
//	body_mode = "json"
//	draft_ttl = "24h"
//	sweep_interval = "1m"
//	max_pending = 500
//
// # Hot reload
//
// Watch follows the config file with fsnotify and hands every successfully
// decoded revision to a callback. The CLI uses it to re-point the transport
// at a new endpoint without a restart.
//
// Note: This package does not read environment variables directly; use the
// config file or flags to configure values.
package config
