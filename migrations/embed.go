package migrations

import "embed"

// Files embeds the ordered schema migrations.
//
//go:embed *.sql
var Files embed.FS
