// Package all registers every built-in storage backend with the storage
// factory. Import it for side effects only:
//
//	import _ "github.com/Saujanya0910/csv-to-json/internal/storage/all"
//
// which makes the "postgres", "mssql" and "sqlite" kinds available to
// storage.New and storage.EnsureSchema.
package all

import (
	_ "github.com/Saujanya0910/csv-to-json/internal/storage/mssql"
	_ "github.com/Saujanya0910/csv-to-json/internal/storage/postgres"
	_ "github.com/Saujanya0910/csv-to-json/internal/storage/sqlite"
)
