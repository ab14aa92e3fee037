// Package migrations embeds the collector's goose migrations.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
