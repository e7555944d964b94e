// Package migrations embeds the SQL files that create the history
// store's schema, applied by observability.MigrationRunner.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
