// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI wraps one synchronization run in a three-view workflow:
//  1. [ConfirmView] : Review the source catalog and run options
//  2. [SyncView] : Monitor per-track progress in real time
//  3. [ResultView] : Display run totals and unmatched tracks
//
// The [Model] implements bubbletea's standard Init/Update/View pattern.
// Progress updates flow through a channel from the SyncEngine, providing
// non-blocking status reporting during the run.
package ui
