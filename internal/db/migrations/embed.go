// Package migrations embeds the goose SQL migrations for the
// score-persistence store (internal/db), mirroring the teacher's
// internal/db/migrations package layout.
package migrations

import "embed"

// FS holds the embedded migration files for goose.SetBaseFS.
//
//go:embed *.sql
var FS embed.FS
