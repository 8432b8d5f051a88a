// Package database provides the SQLite connection backing the command log.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Applying schema migrations from an fs.FS (normally migrations.FS)
//   - Health checks for the introspection API
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is created with 0600 permissions
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Migrations are additive. New columns must be nullable or carry a DEFAULT,
// and every .up.sql has a matching .down.sql.
package database
