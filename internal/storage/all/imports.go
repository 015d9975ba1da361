// Package all registers every built-in storage backend with the storage
// factory. Import it for side effects only:
//
//	import _ "csv2json/internal/storage/all"
//
// After that, storage.New accepts the kinds "dir", "sqlite", "postgres",
// "mysql" and "mssql". A binary that needs fewer backends can import the
// backend packages it wants directly instead.
package all

import (
	_ "csv2json/internal/storage/dir"
	_ "csv2json/internal/storage/mssql"
	_ "csv2json/internal/storage/mysql"
	_ "csv2json/internal/storage/postgres"
	_ "csv2json/internal/storage/sqlite"
)
