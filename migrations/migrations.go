// Package migrations embeds the goose SQL migrations so the server binary
// can apply them without shipping migration files alongside it.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS
