// Package session manages the lifecycle of city sessions.
//
// Each session owns one city engine plus its configuration, creation time
// and last access time. The manager keeps sessions in memory, keyed
// case-insensitively, and optionally writes them through a
// SessionPersistence store:
//   - FilePersistence: one indented JSON file per session in a directory
//   - SQLitePersistence: one row per session in a SQLite database, with the
//     city stored as a JSON document
//
// Session Identifiers:
//
// Generated IDs are 4 hex characters from crypto/rand, retried on
// collision. Caller-chosen IDs may use letters, digits, '-' and '_'.
//
// Usage:
//
//	store, err := session.NewSQLitePersistence("cities.db", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store)
//	manager.LoadPersistedSessions()
//
//	sess, err := manager.Create("", cityConfig)
//
// Stored sessions embed their configuration. Older records without one are
// resolved by config name through the config manager.
package session
