package database

import "database/sql"

// Transaction isolation levels
const (
	// LevelDefault uses the database's default isolation level
	LevelDefault = sql.LevelDefault

	// LevelReadCommitted prevents dirty reads
	LevelReadCommitted = sql.LevelReadCommitted

	// LevelRepeatableRead prevents dirty reads and non-repeatable reads
	LevelRepeatableRead = sql.LevelRepeatableRead

	// LevelSerializable provides the highest isolation; prevents all anomalies
	LevelSerializable = sql.LevelSerializable
)
