// package repositories provides SQLite-backed persistence for sync state.
//
// SyncRepository stores the resume cursor and the append-only failure log
// used by the synchronization engine.
package repositories
