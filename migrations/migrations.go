// migrations встраивает SQL-миграции схемы пользователей в бинарь.
// Имена файлов: <version>_<title>.up.sql / .down.sql (golang-migrate).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
