// Package migrations embeds the catalog schema so the binary can migrate a
// fresh database without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-can/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.Migrations = files
	database.MigrationsDir = "."
}
