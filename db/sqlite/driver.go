package sqlite

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a GORM *DB backed by a SQLite file.
func Open(path string) (*gorm.DB, error) {
	return open(path)
}

// OpenMemory creates a named shared in-memory SQLite database. The name
// keeps separate callers (e.g. parallel tests) from sharing state while the
// shared cache keeps GORM's pooled connections on the same database.
func OpenMemory(name string) (*gorm.DB, error) {
	return open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
}

func open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time; a single connection serializes
	// transactions instead of surfacing SQLITE_BUSY to concurrent callers.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
