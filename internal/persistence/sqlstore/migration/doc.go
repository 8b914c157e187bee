// Package migration applies versioned SQL files to the room cache database.
//
// Files are named {version}_{description}.sql (for example
// "001_create_users.sql") and may start with a "-- Description:" comment. They
// are read from an fs.FS so the service can ship them embedded in the binary.
// Applied versions are tracked in a schema_migrations table; each file runs in
// its own transaction and the version sequence must not have gaps.
//
//	manager := migration.NewManager(migration.NewFileScanner(files, "migrations"), migration.NewSQLExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
