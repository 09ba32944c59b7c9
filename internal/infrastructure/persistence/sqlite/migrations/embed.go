// Package migrations holds the SQLite schema as embedded SQL files.
//
// Each file is named NNN_description.sql and has a "-- +migrate Up" section
// and a "-- +migrate Down" section.
package migrations

import "embed"

// FS contains embedded SQLite migrations.
//
//go:embed *.sql
var FS embed.FS
