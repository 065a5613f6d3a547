// Package migrations holds the SQL schema migrations, embedded so the server
// and the migrate command do not depend on the working directory.
package migrations

import "embed"

// FS contains every NNNNNN_name.up.sql / .down.sql pair
//
//go:embed *.sql
var FS embed.FS
