// package services contains clients for the two catalogs involved in a
// migration: the Spotify Web API (source of the liked collection) and the
// ytmusicapi FastAPI proxy (target search and like operations).
//
// The sync engine consumes these through the narrow interfaces it declares in
// internal/tasks; nothing here knows about cursors, retries, or scoring.
package services
