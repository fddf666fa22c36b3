package services

import (
	"fmt"
	"strings"
)

// Track represents a single song identity read from the source catalog.
// Immutable once read; Index is the 1-based position in the source sequence.
type Track struct {
	Index  int
	Title  string
	Artist string
}

// Validate checks that the track carries a usable identity.
func (t Track) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("track %d: empty title", t.Index)
	}
	if strings.TrimSpace(t.Artist) == "" {
		return fmt.Errorf("track %d: empty artist", t.Index)
	}
	return nil
}

// SearchQuery derives the target-catalog search string for the track.
// The derivation is deterministic so retried searches are identical.
func (t Track) SearchQuery() string {
	return strings.TrimSpace(t.Title) + " " + strings.TrimSpace(t.Artist)
}

// Candidate is a target-catalog search result. Ephemeral: produced per query,
// consumed by the match scorer, never persisted.
type Candidate struct {
	ID          string // target identifier usable by the apply operation
	Title       string
	Artist      string
	DurationSec int
}
