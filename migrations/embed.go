// Package migrations embeds the SQL schema into the binary so the service
// can migrate without the files present on disk.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql file at its root.
//
//go:embed *.sql
var FS embed.FS
