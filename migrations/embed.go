// Package migrations holds the embedded SQL schema for the chat and user
// services. Files apply in lexical order (001, 002, ...).
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
