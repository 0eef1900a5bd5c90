package migrations

import "embed"

// FS embeds the SQL migrations for the session store and submission log.
//
//go:embed *.sql
var FS embed.FS
