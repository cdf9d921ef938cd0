// Package migrations embeds the goose SQL migrations for the Postgres
// refresh-token store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
