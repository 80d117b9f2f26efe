// Package all links every storage backend into the binary.
package all

import (
	_ "sportsref/internal/storage/dynamodb"
	_ "sportsref/internal/storage/mssql"
	_ "sportsref/internal/storage/postgres"
	_ "sportsref/internal/storage/sqlite"
)
