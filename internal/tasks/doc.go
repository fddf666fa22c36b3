// package tasks implements the liked-songs synchronization engine.
//
// SyncEngine drives one strictly sequential pass over the source catalog:
// search the target service, score candidates, apply the accepted match, and
// checkpoint a resume cursor after every record. Progress is emitted over a
// channel for non-blocking status reporting to the CLI and TUI layers.
package tasks
