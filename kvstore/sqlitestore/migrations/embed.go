package migrations

import "embed"

// Files exposes the key/value schema migrations embedded into the binary.
//
//go:embed *.sql
var Files embed.FS
