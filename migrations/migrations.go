// Package migrations embeds the catalog schema for each supported driver.
package migrations

import "embed"

// Embedded so the binary migrates without external files.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
