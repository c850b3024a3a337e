// Package migrations embeds the SQL schema files so cmd/migrate can run
// without the files present on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
